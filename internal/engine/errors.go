package engine

import "errors"

// Errors returned to callers. Their messages are shown to users as-is.
var (
	ErrNotLoggedIn        = errors.New("Must be logged in to vote")
	ErrWrongPhase         = errors.New("Voting not allowed for this phase")
	ErrAlreadyVoted       = errors.New("You have already voted for this phase today")
	ErrUnknownOption      = errors.New("Unknown voting option")
	ErrInvalidVote        = errors.New("Invalid vote")
	ErrNotGenerationPhase = errors.New("Not in generation phase")
	ErrMissingWinners     = errors.New("Missing key line or key word")
	ErrCannotSimulate     = errors.New("Cannot simulate current phase")
	ErrNoPoem             = errors.New("No poem found for this date")
	ErrInvalidDate        = errors.New("Invalid date, expected YYYY-MM-DD")
)
