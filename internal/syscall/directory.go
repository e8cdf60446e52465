package syscall

// handleDirectory services mkdirat/chdir/fchdir/chroot/fchmod* (§4.7
// "directory operations"). This core tracks no per-process ownership or
// permission bits, so chmod/chown-family numbers stay ENOSYS; mkdirat
// and chdir are the two that matter to the shell.
func (d *Dispatcher) handleDirectory(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysMkdirat:
		return d.sysMkdirat(args[1])
	case SysChdir:
		path, err := d.readArenaString(args[0], maxPathLen)
		if err != nil {
			return -1, EFAULT
		}
		if path == "/" || path == "." || path == "" {
			return 0, 0
		}
		if _, err := d.FS.Stat(path); err != nil {
			return -1, translateFSErr(err)
		}
		return 0, 0
	default:
		return -1, ENOSYS
	}
}

func (d *Dispatcher) sysMkdirat(pathPtr uint64) (int64, int) {
	path, err := d.readArenaString(pathPtr, maxPathLen)
	if err != nil {
		return -1, EFAULT
	}
	if err := d.FS.Mkdir(path); err != nil {
		return -1, translateFSErr(err)
	}
	return 0, 0
}
