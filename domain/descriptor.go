package domain

import "errors"

// ServiceDescriptor advertises one discoverable service/action.
// Fields match the JSON-LD wire shape: @context, @type, name, description, target.
type ServiceDescriptor struct {
	Context     string `json:"@context"`
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Target      Target `json:"target"`
}

// Target describes how to invoke the service's discovery endpoint.
type Target struct {
	Type        string `json:"@type"`
	URLTemplate string `json:"urlTemplate"`
	ContentType string `json:"contentType"`
	HTTPMethod  string `json:"httpMethod"`
}

// Validate reports the first missing required field.
func (d ServiceDescriptor) Validate() error {
	switch {
	case d.Context == "":
		return errors.New("@context is required")
	case d.Type == "":
		return errors.New("@type is required")
	case d.Name == "":
		return errors.New("name is required")
	case d.Target.Type == "":
		return errors.New("target.@type is required")
	case d.Target.URLTemplate == "":
		return errors.New("target.urlTemplate is required")
	}
	return nil
}
