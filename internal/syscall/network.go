package syscall

// handleNetwork stubs out every network syscall: network stacks are
// explicitly out of scope.
func (d *Dispatcher) handleNetwork(number uint64, args [6]uint64) (int64, int) {
	return -1, ENOSYS
}
