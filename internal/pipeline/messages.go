package pipeline

import (
	"strconv"

	"github.com/pable/rift-rewind/internal/model"
)

// Non-spoiler loading lines shown while a job runs.
var (
	accountMessages = []string{
		"Summoner spotted on the Rift!",
		"Connecting to the Nexus...",
		"Scanning the Rift for your profile...",
		"Found you! Preparing your journey...",
		"Loading Summoner data from the Void...",
	}
	historyMessages = []string{
		"Checking your match history...",
		"Wow... you've been busy on the Rift this year",
		"Gathering your epic moments...",
		"Your teammates are going to want to see this...",
		"Compiling your Rift adventures...",
		"This might take a minute... you've got some stories to tell",
	}
	analysisMessages = []string{
		"Analyzing your biggest plays...",
		"Calculating your... interesting... decision-making",
		"Our AI is judging your champion choices...",
		"Measuring your impact on the Rift...",
		"Evaluating your 5Head moments (and the others)...",
		"Processing your pentakills and... other moments...",
		"Analyzing your farming skills... or lack thereof",
		"Counting how many times you pinged '?'...",
		"Reviewing your flash-into-wall technique...",
		"Calculating your ward-to-death ratio...",
		"Measuring your main character energy...",
		"Analyzing your 200 years of experience...",
	}
	finalMessages = []string{
		"Polishing your highlights...",
		"Preparing your personal roast... I mean review",
		"Generating your custom insights...",
		"Almost there! Getting the good stuff ready...",
		"Finalizing your year on the Rift...",
		"Your Rewind is almost ready... brace yourself",
		"Putting the finishing touches on your story...",
		"Loading the receipts...",
	}
)

const completeMessage = "Your Rewind is ready!"

// LoadingMessage picks the line for state deterministically from the hash,
// so every poll of the same job in the same state reads the same. step lets
// long states rotate through their pool.
func LoadingMessage(hash string, state model.JobState, step int) string {
	var pool []string
	switch state {
	case model.StateSearching:
		pool = accountMessages
	case model.StateFound:
		pool = historyMessages
	case model.StateAnalyzing:
		pool = analysisMessages
	case model.StateGenerating:
		pool = finalMessages
	case model.StateComplete:
		return completeMessage
	default:
		return ""
	}
	return pool[(hashIndex(hash)+step)%len(pool)]
}

func hashIndex(hash string) int {
	if len(hash) < 4 {
		return 0
	}
	n, err := strconv.ParseUint(hash[:4], 16, 16)
	if err != nil {
		return 0
	}
	return int(n)
}
