package ai

import "fmt"

// Prompt templates handed to the model collaborators. Implementations are
// free to ignore them, but the scripted fakes and the default wiring use
// these so that drafting context stays consistent across rewrites.

const ClassifierRules = `Classify emails using these rules:

Assign "ignore" to:
- Marketing newsletters and promotional emails
- Spam or suspicious emails
- Emails where you are only CC'd for information and there are no direct questions

Assign "notify" to:
- All other emails not listed above`

// WriterIntentPrompt builds the first human turn of the drafting history:
// the original email, its summary, and what the user wants the reply to say.
func WriterIntentPrompt(recipient, emailContent, summary, usersIntent string) string {
	return fmt.Sprintf(`I have received the following email:
%s

Here is a summary of the email above:
%s

Please draft a response that addresses my intent below and send to %s:
%s`, emailContent, summary, recipient, usersIntent)
}

// RewriteFeedbackPrompt builds the human turn appended after a draft is
// rejected. The rejected draft itself is appended as the preceding
// assistant turn.
func RewriteFeedbackPrompt(feedback string) string {
	if feedback == "" {
		feedback = "<no feedback given>"
	}
	return fmt.Sprintf(`The previous draft wasn't quite right. Take a look at the feedback below:
%s
Please rewrite the reply accordingly.`, feedback)
}

// ComposeIntentPrompt builds the seed human turn for an outbound compose
// workflow, where there is no inbound email to reply to.
func ComposeIntentPrompt(from, to, usersIntent string) string {
	return fmt.Sprintf(`Please write an email from %s to %s with the following intent:
%s`, from, to, usersIntent)
}
