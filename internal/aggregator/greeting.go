package aggregator

import "math/rand/v2"

var (
	DefaultGreetings   = []string{"Hello", "Greetings", "Good Morning"}
	DefaultSalutations = []string{" RIOTers!", " fellow humans!", "!"}
)

type GreetingFunc func() string

// RandomGreeting picks one greeting and one salutation per call. Empty lists fall
// back to the defaults.
func RandomGreeting(greetings, salutations []string) GreetingFunc {
	if len(greetings) == 0 {
		greetings = DefaultGreetings
	}
	if len(salutations) == 0 {
		salutations = DefaultSalutations
	}
	return func() string {
		return greetings[rand.IntN(len(greetings))] + salutations[rand.IntN(len(salutations))]
	}
}

func FixedGreeting(s string) GreetingFunc {
	return func() string { return s }
}
