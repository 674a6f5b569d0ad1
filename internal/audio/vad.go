package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	// EnergyThreshold is the minimum RMS level to consider as speech
	// Typical values: 0.005 to 0.05 (lower = more sensitive)
	EnergyThreshold float64

	// SilenceBlocks is the number of consecutive quiet blocks before speech ends
	// At 16kHz with 4096-sample blocks: 4 blocks ≈ 1s
	SilenceBlocks int

	// SpeechBlocks is the number of consecutive loud blocks before speech starts
	SpeechBlocks int
}

// DefaultVADConfig returns a VAD configuration tuned for 256ms blocks
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		SilenceBlocks:   4,
		SpeechBlocks:    1,
	}
}

// VAD (Voice Activity Detector) tracks speech vs silence across blocks
type VAD struct {
	config            VADConfig
	silenceBlockCount int
	speechBlockCount  int
	isSpeaking        bool
}

// NewVAD creates a new voice activity detector
func NewVAD(config VADConfig) *VAD {
	if config.SpeechBlocks <= 0 {
		config.SpeechBlocks = 1
	}
	if config.SilenceBlocks <= 0 {
		config.SilenceBlocks = 1
	}
	return &VAD{config: config}
}

// ProcessLevel feeds the RMS level of one block.
// Returns: (isSpeechActive, speechStarted, speechEnded)
func (v *VAD) ProcessLevel(level float64) (bool, bool, bool) {
	speechStarted := false
	speechEnded := false

	if level > v.config.EnergyThreshold {
		v.speechBlockCount++
		v.silenceBlockCount = 0

		if !v.isSpeaking && v.speechBlockCount >= v.config.SpeechBlocks {
			v.isSpeaking = true
			speechStarted = true
		}
	} else {
		v.silenceBlockCount++
		v.speechBlockCount = 0

		if v.isSpeaking && v.silenceBlockCount >= v.config.SilenceBlocks {
			v.isSpeaking = false
			speechEnded = true
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}
