package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// ChatParams is the body of a chat request. ConversationID is optional; when
// present the exchange is handed to the conversation store after streaming.
type ChatParams struct {
	Question       string `json:"question" validate:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
	Mode           string `json:"mode,omitempty" validate:"omitempty,oneof=light rich"`
}

// EmbedParams is the JSON form of a file ingestion request. Multipart
// uploads bypass FileBase64 and carry the file directly.
type EmbedParams struct {
	Namespace  string `json:"namespace" validate:"required"`
	FileBase64 string `json:"fileBase64,omitempty"`
	FileName   string `json:"fileName,omitempty"`
}

// URLEmbedParams accepts a single url or a list; at least one must survive
// scheme validation before any fetching happens.
type URLEmbedParams struct {
	URL       string   `json:"url,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
}

func (params *ChatParams) Validate() map[string]string {
	return structErrors(params)
}

func (params *EmbedParams) Validate() map[string]string {
	return structErrors(params)
}

func (params *URLEmbedParams) Validate() map[string]string {
	if params.URL == "" && len(params.URLs) == 0 {
		return map[string]string{"url": "either 'url' or 'urls' is required"}
	}
	return nil
}

func structErrors(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
