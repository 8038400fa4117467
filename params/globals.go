package params

type TrainingConfig struct {
	// Core model parameters
	HiddenSize    int // char embedding width and encoder LSTM width (before condition)
	VocabSize     int // |V| = SOS + EOS + a..z
	LatentSize    int // dimension of the stochastic bottleneck
	NumCondition  int // tense categories
	ConditionSize int // condition embedding width
	MaxDecodeLen  int // cap for free-running generation without a target

	// Optimization parameters
	LearningRate        float64
	Optimizer           string  // "sgd" or "adam"
	TeacherForcingRatio float64 // probability a sample is decoded with ground-truth inputs
	KLWeight            float64 // final/constant weight of the KL term
	KLSchedule          string  // "constant", "monotonic" or "cyclical"
	KLAnnealEpochs      int     // ramp (or cycle) length for non-constant schedules
	AdamBeta1           float64 // default 0.9
	AdamBeta2           float64 // default 0.999
	AdamEps             float64 // default 1e-8
	GradClip            float64 // <=0 disables
	WeightDecay         float64 // AdamW-style; 0 disables

	Epochs       int  // training iteration count
	Shuffle      bool // shuffle word tuples every epoch
	PriorSamples int  // latents drawn from N(0, I) for the Gaussian score
	Seed         uint64
}

var Config = TrainingConfig{
	HiddenSize:    256,
	VocabSize:     28,
	LatentSize:    32,
	NumCondition:  4,
	ConditionSize: 8,
	MaxDecodeLen:  20,

	LearningRate:        0.05,
	Optimizer:           "sgd",
	TeacherForcingRatio: 0.5,
	KLWeight:            0.0,
	KLSchedule:          "constant",
	KLAnnealEpochs:      10,
	AdamBeta1:           0.9,
	AdamBeta2:           0.999,
	AdamEps:             1e-8,
	GradClip:            0,
	WeightDecay:         0,

	Epochs:       1000,
	Shuffle:      true,
	PriorSamples: 100,
	Seed:         1,
}
