package chat

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
)

const fence = "```"

const systemPromptHead = `You are a specialized product inquiry assistant. Your primary and ONLY role is to answer user questions based on the 'Retrieved Documents' provided below.

Follow these rules strictly:
1.  Base your entire response on the information found within the 'Retrieved Documents'. Do not use any external knowledge.
2.  If there are no documents or the documents do not contain the information needed to answer the query, you MUST respond with: "I'm sorry, but I cannot answer your question with the information I have."
3.  If the documents contain relevant information, use it to construct a clear and concise answer.
    The documents may include metadata such as price, product name, brand, and category.
    The documents may also include product descriptions and features.
    The documents may include customer reviews which can be used to answer questions about product quality and user satisfaction.
4.  Some documents may not be fully relevant; carefully select and synthesize information only from the relevant parts.
5.  Do not fabricate or assume any information not present in the documents.
6.  Analyze the chat history provided under 'Chat History' for conversational context, but do not use it as a source for answers.
7.  Respond in a friendly and helpful tone, with concise answers and directly related to the query.
8.  Make sure to ask the user relevant follow-up questions.
9.  Always format prices with a dollar sign and two decimal places.
10. Do not use the term 'Retrieved Documents' in your response. It is only for your reference.

`

const documentSeparator = "\n\n---\n\n"

// SystemPrompt renders the grounding prompt for already formatted documents.
func SystemPrompt(documents []string, history []domain.Turn) string {
	var b strings.Builder
	b.WriteString(systemPromptHead)
	b.WriteString("Retrieved Documents:\n")
	b.WriteString(fence + "\n")
	b.WriteString(strings.Join(documents, documentSeparator))
	b.WriteString("\n" + fence + "\n\n")
	b.WriteString("Chat History:\n")
	b.WriteString(renderHistory(history))
	b.WriteString("\n")
	return b.String()
}

func renderHistory(history []domain.Turn) string {
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = "User: " + t.User + "\nAssistant: " + t.Assistant
	}
	return strings.Join(lines, "\n")
}

// FormatDocument appends a metadata line to the item text so the model sees
// price, rating and product identity even when the text omits them.
func FormatDocument(item result.Item) string {
	text := item.Text()
	md := item.Metadata()
	if md == nil {
		return text
	}

	var parts []string
	base := md.Base()
	addName := func(label, v string) {
		if v != "" && !strings.Contains(text, v) {
			parts = append(parts, label+": "+v)
		}
	}
	addName("Product Name", base.ProductName)
	addName("Brand", base.Brand)
	addName("Category", base.Category)

	switch m := md.(type) {
	case document.ProductMetadata:
		if m.Price != nil {
			parts = append(parts, fmt.Sprintf("Price: $%.2f", *m.Price))
		}
	case document.ReviewMetadata:
		if m.Rating != nil {
			parts = append(parts, fmt.Sprintf("Rating: %g out of 5", *m.Rating))
		}
	}

	if len(parts) == 0 {
		return text
	}
	return text + "\n" + strings.Join(parts, ", ")
}
