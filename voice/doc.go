// Package voice
// Author: momentics <momentics@gmail.com>
//
// Voice agent service on top of the ring transport and the parcel codec.
//
// A host places a mic ring in memory it shares with the agent and encodes the
// engine config into a parcel. The agent attaches to the ring, decodes the
// config in place, builds an engine for the requested flow and feeds it
// FrameBytes frames as they arrive. Engine events are copied into bounded
// notify buffers and delivered to the host from a separate goroutine.
package voice
