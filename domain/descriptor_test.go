package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDescriptor() ServiceDescriptor {
	return ServiceDescriptor{
		Context:     "http://schema.org",
		Type:        "DiscoverAction",
		Name:        "Rift",
		Description: "What is Rift?",
		Target: Target{
			Type:        "EntryPoint",
			URLTemplate: "http://172.16.1.52:8677/about",
			ContentType: "application/json+ld",
			HTTPMethod:  "GET",
		},
	}
}

func TestServiceDescriptor_Validate(t *testing.T) {
	assert.NoError(t, validDescriptor().Validate())

	tests := []struct {
		name   string
		mutate func(*ServiceDescriptor)
		want   string
	}{
		{name: "context", mutate: func(d *ServiceDescriptor) { d.Context = "" }, want: "@context"},
		{name: "type", mutate: func(d *ServiceDescriptor) { d.Type = "" }, want: "@type"},
		{name: "name", mutate: func(d *ServiceDescriptor) { d.Name = "" }, want: "name"},
		{name: "target", mutate: func(d *ServiceDescriptor) { d.Target = Target{} }, want: "target.@type"},
		{name: "url template", mutate: func(d *ServiceDescriptor) { d.Target.URLTemplate = "" }, want: "target.urlTemplate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor()
			tt.mutate(&d)
			err := d.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}
