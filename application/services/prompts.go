package services

import (
	"fmt"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
)

// SystemInstruction builds the tutor persona for a student and mode
func SystemInstruction(user entities.User, mode valueobjects.TutorMode) string {
	base := fmt.Sprintf(`You are Jarvis, an advanced AI Tutor tailored for a %s student in %s. Your goal is to teach, not just answer.
Maintain a short-term memory of concepts discussed to link them later.
ALWAYS format your responses with Markdown.
IMPORTANT: Use **bold** text to highlight important keywords, definitions, formulas, and key takeaways in your explanations.`,
		user.Stream, user.Standard)

	switch mode {
	case valueobjects.ModeExplain:
		return base + fmt.Sprintf(`
Mode: Explain Mode.
1. Explain concepts step-by-step using simple analogies related to %s.
2. After an explanation, ask a follow-up checking question to ensure understanding.
3. If the user says "Now I understand", celebrate briefly and summarize.
4. If the user is confused, break it down further.
`, user.Stream)
	case valueobjects.ModePractice:
		return base + `
Mode: Practice Mode.
1. Loop: Ask a question -> Wait for Answer -> Evaluate -> Hint -> Retry.
2. Do not give the full answer immediately. Guide them.
3. Rate their answer (Internal Logic, don't show score unless asked) and give constructive feedback.
`
	case valueobjects.ModeExamPrep:
		return base + fmt.Sprintf(`
Mode: Exam Prediction & Advanced.
1. Analyze the topic provided.
2. Predict 3 likely exam questions based on typical %s curriculums.
3. Provide detailed model answers for one if requested.
`, user.Stream)
	}
	return base
}

// LiveInstruction is the shorter persona used for voice conversations
func LiveInstruction(user entities.User) string {
	return fmt.Sprintf("You are Jarvis, a helpful AI tutor for a %s student. Be concise, encouraging, and clear.", user.Standard)
}

// SelectModelTier uses the reasoning model only for Pro students in exam prep
func SelectModelTier(user entities.User, mode valueobjects.TutorMode) ports.ModelTier {
	if user.IsPro && mode == valueobjects.ModeExamPrep {
		return ports.TierPro
	}
	return ports.TierFlash
}
