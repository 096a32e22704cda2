package ai

import "errors"

// Configuration and structural faults. Expected misses are never errors.
var (
	ErrMissingCollaborator = errors.New("ai: missing collaborator")
	ErrMalformedSkill      = errors.New("ai: malformed skill")
	ErrUnknownSkill        = errors.New("ai: unknown skill")
	ErrNoAccount           = errors.New("ai: unit has no ledger account")
	ErrUnknownArchetype    = errors.New("ai: unknown archetype")
)

// IsStructural reports whether err must abort the tick instead of failing a
// leaf. Such faults come from configuration, so retrying does not help.
func IsStructural(err error) bool {
	return errors.Is(err, ErrMissingCollaborator) ||
		errors.Is(err, ErrMalformedSkill) ||
		errors.Is(err, ErrUnknownSkill) ||
		errors.Is(err, ErrNoAccount)
}
