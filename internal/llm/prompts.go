package llm

import (
	"fmt"

	"github.com/zhe.chen/storyweaver/internal/language"
)

const (
	summaryMaxTokens = 300
	scenesMaxTokens  = 400
)

// SummaryRequest asks for a short summary of text in the narration
// language, translating when the two languages differ.
func SummaryRequest(text, inputLang, outputLang string) CompletionRequest {
	in, out := language.Name(inputLang), language.Name(outputLang)

	system := fmt.Sprintf("You are an expert storyteller. Summarize stories in 2-3 sentences, capturing the key moral and cultural elements. Respond in %s.", out)
	if inputLang != outputLang {
		system = fmt.Sprintf("You are an expert storyteller and translator. Summarize the %s story in 2-3 sentences and translate the summary to %s. Capture the key moral and cultural elements.", in, out)
	}

	return CompletionRequest{
		System:    system,
		Prompt:    text,
		MaxTokens: summaryMaxTokens,
	}
}

// ScenesRequest asks for count visual scene descriptions, one per line.
func ScenesRequest(summary, lang string, count int) CompletionRequest {
	name := language.Name(lang)
	return CompletionRequest{
		System:    fmt.Sprintf("Break down this story summary into %d key visual scenes. Each scene should be described in one sentence suitable for image generation. Consider the cultural context of %s storytelling traditions. Return one scene per line.", count, name),
		Prompt:    summary,
		MaxTokens: scenesMaxTokens,
	}
}
