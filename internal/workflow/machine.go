package workflow

// Machine is a Definition seen through plain strings. Code that handles
// several workflows by record kind (the HTTP layer, the Temporal workflow)
// works against Machine and never needs the concrete status type.
type Machine interface {
	Name() string
	Initial() string
	Statuses() []string
	Contains(status string) bool
	ValidTransitions(current string) []string
	IsValidTransition(current, next string) bool
	IsTerminal(status string) bool
	RequiresReason(status string) bool
	Validate(current, next string) error
	Format(status string) string
	Describe(status string) string
}

// Erase adapts a typed Definition to Machine.
func Erase[S ~string](d *Definition[S]) Machine {
	return erased[S]{d: d}
}

type erased[S ~string] struct {
	d *Definition[S]
}

func (e erased[S]) Name() string    { return e.d.Name() }
func (e erased[S]) Initial() string { return string(e.d.Initial()) }

func (e erased[S]) Statuses() []string { return toStrings(e.d.Statuses()) }

func (e erased[S]) Contains(status string) bool { return e.d.Contains(S(status)) }

func (e erased[S]) ValidTransitions(current string) []string {
	return toStrings(e.d.ValidTransitions(S(current)))
}

func (e erased[S]) IsValidTransition(current, next string) bool {
	return e.d.IsValidTransition(S(current), S(next))
}

func (e erased[S]) IsTerminal(status string) bool     { return e.d.IsTerminal(S(status)) }
func (e erased[S]) RequiresReason(status string) bool { return e.d.RequiresReason(S(status)) }

func (e erased[S]) Validate(current, next string) error {
	return e.d.Validate(S(current), S(next))
}

func (e erased[S]) Format(status string) string   { return e.d.Format(S(status)) }
func (e erased[S]) Describe(status string) string { return e.d.Describe(S(status)) }

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
