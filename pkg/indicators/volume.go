package indicators

// AvgVolume is the arithmetic mean of the first p entries of volumes
// (most-recent-first). Returns ok=false if volumes is shorter than p.
func AvgVolume(p int, volumes []float64) (float64, bool) {
	return SMA(p, volumes)
}
