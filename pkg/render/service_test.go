package render_test

import (
	"context"
	"errors"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

type serverRejects struct {
	form.BaseService
	fields []model.FieldDefinition
}

func (s serverRejects) OnSubmit(ctx context.Context, fc form.Context) (form.SubmitResult, error) {
	return form.Submit(ctx, fc, func(context.Context, map[string]any) error {
		return &form.SubmissionError{
			Err:    errors.New("409 conflict"),
			Errors: render.MapErrors(s.fields, map[string][]string{"/body/name": {"Name taken"}}),
		}
	})
}
