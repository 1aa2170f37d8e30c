// File: voice/errors.go
// Author: momentics <momentics@gmail.com>

package voice

import (
	"fmt"

	"github.com/momentics/voicering/api"
)

var (
	ErrAlreadyCreated = fmt.Errorf("voice engine already created: %w", api.ErrAlreadyExists)
	ErrNotCreated     = fmt.Errorf("voice engine not created: %w", api.ErrNotFound)
	ErrRunning        = fmt.Errorf("voice loop already running: %w", api.ErrAlreadyExists)
	ErrEventTooLarge  = fmt.Errorf("event exceeds notify buffer: %w", api.ErrResourceExhausted)
)
