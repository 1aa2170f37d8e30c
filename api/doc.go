// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts, DTOs and error types shared by the ring transport, the parcel
// codec, the voice agent and the control layer. No package here depends on
// anything but the standard library.
package api
