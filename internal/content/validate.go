package content

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/kinderquiz/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		q := sl.Current().Interface().(model.TestQuestion)
		if q.CorrectIndex >= len(q.Options) {
			sl.ReportError(q.CorrectIndex, "answer", "CorrectIndex", "ltoptions", "")
		}
	}, model.TestQuestion{})
	return v
}

// requiredItemFields names the lesson fields each subject must fill.
var requiredItemFields = map[model.Subject]func(model.LessonItem) map[string]string{
	model.SubjectVocabulary: func(it model.LessonItem) map[string]string {
		return map[string]string{"word": it.Word, "translation": it.Translation}
	},
	model.SubjectArithmetic: func(it model.LessonItem) map[string]string {
		return map[string]string{"title": it.Title, "content": it.Content}
	},
	model.SubjectCharacters: func(it model.LessonItem) map[string]string {
		return map[string]string{"char": it.Char, "pinyin": it.Pinyin}
	},
}

// Validate checks every record of pool against the subject's invariants:
// questions need a prompt, at least two options and an answer index inside
// the options; lesson items need their subject's display fields.
func Validate(subject model.Subject, pool model.ContentPool) error {
	fields, ok := requiredItemFields[subject]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownSubject, subject)
	}

	var errs []error
	for i, it := range pool.Lessons {
		for name, val := range fields(it) {
			if err := validate.Var(val, "required"); err != nil {
				errs = append(errs, fmt.Errorf("%s lesson %d: %s is required", subject, i, name))
			}
		}
	}
	for i, q := range pool.Tests {
		if err := validate.Struct(q); err != nil {
			errs = append(errs, fmt.Errorf("%s test %d: %w", subject, i, describe(err)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", model.ErrInvalidContent, errors.Join(errs...))
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.Join(msgs...)
}
