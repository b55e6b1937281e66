package sample

// Stamper assigns frame ids and sample numbers to consecutive transmissions of one
// signal stream, the way the transmission layer prepares samples before they reach a
// buffer.
//
// Frame ids start at 1 (0 means "unset"). Every stamped sample takes the current
// sample number; a sync-flagged sample closes the frame, so the next one starts at
// sample number 0 of the next frame id.
//
// Stamper is not safe for concurrent use.
type Stamper struct {
	frameID uint64
	next    uint16
}

// NewStamper returns a stamper positioned at the first sample of frame 1.
func NewStamper() *Stamper {
	return &Stamper{frameID: 1}
}

// Stamp writes frame id, sample number and sync flag into s and advances the stamper.
func (st *Stamper) Stamp(s *Sample, sync bool) {
	s.SetFrameID(st.frameID)
	s.SetSampleNumber(st.next)
	s.SetSyncFlag(sync)
	if sync {
		st.frameID++
		st.next = 0
		return
	}
	st.next++
}

// FrameID returns the frame id the next stamped sample will carry.
func (st *Stamper) FrameID() uint64 { return st.frameID }

// Reset restarts stamping at the first sample of frame 1.
func (st *Stamper) Reset() {
	st.frameID = 1
	st.next = 0
}
