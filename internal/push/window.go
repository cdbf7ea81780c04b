package push

// workWindow is the range of UIDs one loop iteration is responsible for.
type workWindow struct {
	OldUIDNext int64
	NewUIDNext int64
	StartUID   int64
}

// NeedsSync reports whether the server moved past what we already know.
func (w workWindow) NeedsSync() bool {
	return w.NewUIDNext > w.StartUID
}

// clampUIDNext keeps the persisted boundary from regressing below the value
// seen on the previous iteration, which would otherwise rescan forever.
func clampUIDNext(persisted, lastObserved int64) int64 {
	if persisted < lastObserved {
		return lastObserved
	}
	return persisted
}

func startUID(oldUIDNext, newUIDNext int64, displayCount int) int64 {
	start := oldUIDNext
	if start < newUIDNext-int64(displayCount) {
		start = newUIDNext - int64(displayCount)
	}
	if start < 1 {
		start = 1
	}
	return start
}

func newWorkWindow(oldUIDNext, newUIDNext int64, displayCount int) workWindow {
	return workWindow{
		OldUIDNext: oldUIDNext,
		NewUIDNext: newUIDNext,
		StartUID:   startUID(oldUIDNext, newUIDNext, displayCount),
	}
}
