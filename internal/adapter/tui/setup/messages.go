// Package setup implements the Bubble Tea front end of the onboarding wizard.
package setup

// SavedMsg carries the outcome of draining pending settings writes once the
// wizard reaches its exit step. A nil Err means every write finished.
type SavedMsg struct {
	Err error
}
