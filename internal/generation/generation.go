// Package generation holds the prompt wording sent to generation providers.
package generation

import "fmt"

// DefaultSystemPrompt constrains the generator to the supplied context.
const DefaultSystemPrompt = "You are an AI assistant for the Physical AI & Humanoid Robotics course. " +
	"Answer questions based only on the provided course content context. " +
	"If the context doesn't contain enough information to answer the question, say so explicitly. " +
	"Be accurate, concise, and helpful."

// UserPrompt formats the user turn from the assembled context and the question.
func UserPrompt(context, question string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nPlease provide a detailed answer based on the context.", context, question)
}
