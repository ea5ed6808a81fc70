package process

// terminator is the platform strategy for taking down a child process and
// all of its descendants. Terminate(false) asks politely; Terminate(true)
// kills. Both must leave no descendant running once the forced stage has
// completed.
type terminator interface {
	Terminate(force bool) error
}
