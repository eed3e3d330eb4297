package ai

import "context"

// Prompt is the structured instruction sent to the completion provider.
type Prompt struct {
	System string
	User   string
}

// TurnContext is one answered question/answer pair fed into the prompt.
type TurnContext struct {
	Question string
	Answer   string
}

// Completer abstracts the external completion provider. CompleteStream
// forwards each text fragment to onFragment as it arrives and returns the
// accumulated text; when onFragment fails the stream stops and the text
// gathered so far is returned alongside the error.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	CompleteStream(ctx context.Context, prompt Prompt, onFragment func(string) error) (string, error)
}
