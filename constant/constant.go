package constant

type AnalysisStatus string

const (
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusComplete   AnalysisStatus = "complete"
	AnalysisStatusError      AnalysisStatus = "error"
)

func (s AnalysisStatus) String() string {
	return string(s)
}

// Terminal reports whether no further status transition is allowed.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisStatusComplete || s == AnalysisStatusError
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// FillerWords is the vocabulary counted against the transcript, in
// tie-break order.
var FillerWords = []string{
	"um", "uh", "like", "you know", "so", "basically",
	"literally", "actually", "right", "okay", "well",
}

// OverallLabels is the closed set of labels the scoring provider may
// assign to a speech.
var OverallLabels = []string{
	"Needs Work", "Developing", "Competent", "Strong", "Exceptional",
}

// ScoreDimensions are the named sub-scores of a speech evaluation.
var ScoreDimensions = []string{
	"vocal_variety", "tonality", "word_choice", "filler_words",
}
