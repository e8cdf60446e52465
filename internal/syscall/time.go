package syscall

// handleTime services nanosleep and the clock_* family. There is no
// timer interrupt or wall clock in this core (§5 "Scheduling model:
// ... no preemption"), so sleep is a no-op and clock reads return zero.
func (d *Dispatcher) handleTime(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysNanosleep:
		return 0, 0
	case SysClockGettime:
		if tsPtr := args[1]; tsPtr != 0 {
			buf := make([]byte, 16)
			d.Alloc.Arena().WriteAt(tsPtr, buf)
		}
		return 0, 0
	default:
		return -1, ENOSYS
	}
}
