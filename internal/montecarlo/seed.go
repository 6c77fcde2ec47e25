package montecarlo

// Seed derives the seed of trial trialIndex from the batch base seed.
func Seed(baseSeed int64, trialIndex int) int64 {
	return baseSeed + int64(trialIndex)
}
