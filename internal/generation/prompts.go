package generation

import (
	_ "embed"
	"strings"

	"applykit-backend/internal/llm"
)

var (
	//go:embed prompts/resume_system.txt
	resumeSystem string
	//go:embed prompts/resume_user.txt
	resumeUser string
	//go:embed prompts/cover_letter_system.txt
	coverLetterSystem string
	//go:embed prompts/cover_letter_user.txt
	coverLetterUser string
	//go:embed prompts/follow_up_system.txt
	followUpSystem string
	//go:embed prompts/follow_up_user.txt
	followUpUser string
)

// BuildMessages returns the system and user messages for one channel.
func BuildMessages(ch Channel, in Input) []llm.Message {
	var system, user string
	switch ch {
	case ChannelResume:
		system, user = resumeSystem, resumeUser
	case ChannelCoverLetter:
		system, user = coverLetterSystem, coverLetterUser
	default:
		system, user = followUpSystem, followUpUser
	}

	r := strings.NewReplacer(
		"{{TONE}}", in.Formality.Adjective(),
		"{{CV}}", strings.TrimSpace(in.CV),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(in.JobDescription),
	)
	return []llm.Message{
		llm.System(strings.TrimSpace(system)),
		llm.User(strings.TrimSpace(r.Replace(user))),
	}
}
