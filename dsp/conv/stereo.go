package conv

// Stereo is a pair of independent mono Convolvers.
type Stereo struct {
	Left, Right Convolver
}

// Prepare loads left and right IRs. A nil or empty right IR reuses left.
func (s *Stereo) Prepare(left, right []float32, blockSize int) error {
	if len(right) == 0 {
		right = left
	}

	if err := s.Left.Prepare(left, blockSize); err != nil {
		return err
	}

	return s.Right.Prepare(right, blockSize)
}

// Process convolves one block per channel.
func (s *Stereo) Process(dstL, dstR, srcL, srcR []float32) {
	s.Left.Process(dstL, srcL)
	s.Right.Process(dstR, srcR)
}

// Reset clears both channels' history.
func (s *Stereo) Reset() {
	s.Left.Reset()
	s.Right.Reset()
}

// Latency returns the buffering latency in samples.
func (s *Stereo) Latency() int {
	return s.Left.Latency()
}
