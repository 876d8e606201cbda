package sim

// Recorder keeps every snapshot it is given.
type Recorder struct {
	Snapshots []Snapshot
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Render(s Snapshot) error {
	r.Snapshots = append(r.Snapshots, s)
	return nil
}

// Last returns the most recent snapshot, if any.
func (r *Recorder) Last() (Snapshot, bool) {
	if len(r.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return r.Snapshots[len(r.Snapshots)-1], true
}
