package action

import "context"

// Scheduler executes a list of single actions and returns their tokens.
//
// Implementations must return exactly one token per action with index
// correspondence, and must not mutate the session concurrently from
// multiple goroutines unless they serialize writes themselves.
type Scheduler interface {
	Execute(ctx context.Context, actions []Action) []*Token
}

// Serial runs actions sequentially in list order. It is the built-in
// scheduler: within a run, execution order equals the batch's generation
// order. Actions run with autoRegister off; the owning batch registers the
// folded token.
type Serial struct{}

// Execute runs every action in order and collects the tokens.
func (Serial) Execute(ctx context.Context, actions []Action) []*Token {
	tokens := make([]*Token, len(actions))
	for i, act := range actions {
		tokens[i] = act.Do(ctx, false)
	}
	return tokens
}
