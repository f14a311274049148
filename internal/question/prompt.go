package question

import (
	"fmt"
	"strings"
)

const promptExample = `[
{
"question": "What is the capital city of France?",
"options": [
"London",
"Paris",
"Berlin",
"Madrid"
],
"correct": 1,
"hint": "Think about the most famous city in France.",
"explanation": "Paris is the capital and largest city of France."
}
]`

// BuildPrompt renders the generation instructions for the given material.
func BuildPrompt(material string, count int) string {
	var b strings.Builder

	b.WriteString("You are a teacher creating educational assessments. ")
	b.WriteString("Your teaching style is concise, friendly and gets to the point.\n\n")
	b.WriteString("You are given the following materials. Images may not be included, so infer what they likely showed from the surrounding text.\n\n")
	fmt.Fprintf(&b, "Based on the following materials, create %d multiple-choice questions.\n\n", count)

	b.WriteString("---\n")
	b.WriteString(material)
	b.WriteString("\n---\n\n")

	b.WriteString("Based on these materials, do the following:\n")
	b.WriteString("1) Guess the educational level of the topic (e.g., primary P.2, secondary, tertiary, professional).\n")
	fmt.Fprintf(&b, "2) Create %d multiple-choice questions whose difficulty is one level harder than the guessed level (e.g., guessed P.2 -> produce P.3-level difficulty or slightly higher). Make them slightly tricky but fair.\n", count)
	b.WriteString("3) For each question, write plausible distractors that are GENERALLY INCORRECT (not just wrong relative to this passage). Distractors should represent common misconceptions or confusable alternatives that would be wrong in most contexts.\n")
	b.WriteString("4) The \"explanation\" field should be concise and help memorization (shown after a correct answer).\n")
	b.WriteString("5) The \"hint\" field must be present and non-empty, and should guide reflection after a wrong attempt.\n")
	b.WriteString("6) Ensure no distractor is a case/spacing variant of the correct answer.\n")
	b.WriteString("7) Distractors must be substantively different from the correct answer.\n")
	b.WriteString("8) Write questions, options, hints and explanations in the same language as the materials. If the materials teach a language, add English translations where they help the learner.\n\n")

	b.WriteString("Important formatting rules:\n")
	b.WriteString("- Output ONLY pure JSON. No thoughts. No preface. No prose, no markdown, no code fences.\n")
	b.WriteString("- The JSON must be an array of objects with exactly these keys per item:\n")
	b.WriteString("question (string), options (array of 3-6 strings), correct (integer index within options), hint (string), explanation (string).\n")
	b.WriteString("- Do NOT include any extra wrapper objects or metadata. No backticks. No comments.\n\n")

	b.WriteString("Example JSON:\n")
	b.WriteString(promptExample)
	b.WriteString("\n\nProvide ONLY the JSON array.\n")

	return b.String()
}
