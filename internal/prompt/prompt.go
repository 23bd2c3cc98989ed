// Package prompt renders the two fixed prompts sent to the language model.
// Both builders are pure; identical input yields byte-identical output.
package prompt

import (
	"strings"

	"github.com/faq-assistant/backend/internal/storage/models"
)

const answerTemplate = `You're an expert that can answer your questions about mental health. Answer the QUESTION based on the CONTEXT from the FAQ database.
Use only the facts from the CONTEXT when answering the QUESTION.

QUESTION: {question}

CONTEXT: 
{context}`

const evaluationTemplate = `You are an expert evaluator for a RAG system.
Your task is to analyze the relevance of the generated answer to the given question.
Based on the relevance of the generated answer, you will classify it
as "NON_RELEVANT", "PARTLY_RELEVANT", or "RELEVANT".

Here is the data for evaluation:

Question: {question}
Generated Answer: {answer}

Please analyze the content and context of the generated answer in relation to the question
and provide your evaluation in parsable JSON without using code blocks:

{
  "Relevance": "NON_RELEVANT" | "PARTLY_RELEVANT" | "RELEVANT",
  "Explanation": "[Provide a brief explanation for your evaluation]"
}`

// FormatEntry renders one retrieved entry as its three-line context block.
func FormatEntry(e models.FAQEntry) string {
	return "Question_id:" + e.ID + "\n" +
		"Questions: " + e.Question + "\n" +
		"Answers: " + e.Answer
}

func BuildAnswerPrompt(query string, results []models.FAQEntry) string {
	var context strings.Builder
	for _, e := range results {
		context.WriteString(FormatEntry(e))
		context.WriteString("\n\n")
	}

	// A single pass keeps placeholders inside the query or the corpus text
	// from being expanded.
	r := strings.NewReplacer("{question}", query, "{context}", context.String())
	return strings.TrimSpace(r.Replace(answerTemplate))
}

func BuildEvaluationPrompt(question, answer string) string {
	r := strings.NewReplacer("{question}", question, "{answer}", answer)
	return r.Replace(evaluationTemplate)
}
