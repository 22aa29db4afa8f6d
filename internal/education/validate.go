package education

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	futureTag  = "future"
	futureText = "{0} must be in the future"

	webURLTag  = "weburl"
	webURLText = "{0} must be an absolute http(s) URL"

	materialTypeTag  = "material_type"
	materialTypeText = "{0} is not an accepted file type"

	// struct level tags
	minOptionsTag       = "min_options"
	minOptionsText      = "multiple choice questions need at least 2 options"
	blankOptionTag      = "blank_option"
	blankOptionText     = "options cannot be blank"
	distinctOptionsTag  = "distinct_options"
	distinctOptionsText = "options must be distinct"
	answerInOptionsTag  = "answer_in_options"
	answerInOptionsText = "correct answer must be one of the options"
	answerRequiredTag   = "answer_required"
	answerRequiredText  = "a correct answer is required"
	mediaURLTag         = "media_url_required"
	mediaURLText        = "a media URL is required for this content type"
	bodyRequiredTag     = "body_required"
	bodyRequiredText    = "text content needs a body"
)

// Validator checks forms before they are turned into records.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
}

// NewValidator builds a Validator. now is used by the "future" rule; nil
// means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}

	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}

	_en := en.New()
	uni := ut.New(_en, _en)
	v.translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = v.validate.RegisterValidation(futureTag, v.futureValidation)
	_ = v.validate.RegisterValidation(webURLTag, webURLValidation)
	_ = v.validate.RegisterValidation(materialTypeTag, materialTypeValidation)
	v.validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	v.validate.RegisterStructValidation(contentStructValidation, NewContentItem{})

	v.registerTranslation(notBlankTag, notBlankText)
	v.registerTranslation(futureTag, futureText)
	v.registerTranslation(webURLTag, webURLText)
	v.registerTranslation(materialTypeTag, materialTypeText)
	v.registerTranslation(minOptionsTag, minOptionsText)
	v.registerTranslation(blankOptionTag, blankOptionText)
	v.registerTranslation(distinctOptionsTag, distinctOptionsText)
	v.registerTranslation(answerInOptionsTag, answerInOptionsText)
	v.registerTranslation(answerRequiredTag, answerRequiredText)
	v.registerTranslation(mediaURLTag, mediaURLText)
	v.registerTranslation(bodyRequiredTag, bodyRequiredText)

	return v
}

// Struct validates a form and returns a *ValidationError listing every
// failing field, or nil.
func (v *Validator) Struct(form any) error {
	return v.toValidationError(v.validate.Struct(form))
}

// StructExcept validates a form but skips the named fields (Go field names).
// Edits use it to skip time-relative rules on values that did not change.
func (v *Validator) StructExcept(form any, fields ...string) error {
	return v.toValidationError(v.validate.StructExcept(form, fields...))
}

func (v *Validator) toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating form: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fe.Translate(v.translator),
		})
	}
	return out
}

// fieldPath strips the struct name from a validator namespace:
// "NewQuiz.questions[0].text" -> "questions[0].text".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// registerTranslation registers an English message for a custom tag. {0}
// is replaced by the field name.
func (v *Validator) registerTranslation(tag, text string) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *Validator) futureValidation(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(v.now())
}

func webURLValidation(fl validator.FieldLevel) bool {
	return IsWebURL(fl.Field().String())
}

func materialTypeValidation(fl validator.FieldLevel) bool {
	return IsMaterialContentType(fl.Field().String())
}

// IsWebURL reports whether s is an absolute http or https URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsMaterialContentType reports whether a MIME type (parameters allowed)
// is accepted for material uploads.
func IsMaterialContentType(s string) bool {
	mediaType, _, err := mime.ParseMediaType(s)
	if err != nil {
		return false
	}
	return slices.Contains(MaterialContentTypes, mediaType)
}

// questionStructValidation applies the per-type answer rules.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(NewQuestion)

	switch q.Type {
	case MultipleChoice:
		validateOptions(q, sl)
	case TrueFalse:
		if !slices.ContainsFunc(q.Options, func(o string) bool { return strings.EqualFold(o, q.CorrectAnswer) }) {
			sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", answerInOptionsTag, "")
		}
	case ShortAnswer:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", answerRequiredTag, "")
		}
	}
}

// validateOptions checks a multiple choice question: at least two options,
// none blank, no duplicates (case-insensitive), answer among them.
func validateOptions(q NewQuestion, sl validator.StructLevel) {
	if len(q.Options) < 2 {
		sl.ReportError(q.Options, "options", "Options", minOptionsTag, "")
		return
	}

	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			sl.ReportError(q.Options, "options", "Options", blankOptionTag, "")
			return
		}
		if seen[key] {
			sl.ReportError(q.Options, "options", "Options", distinctOptionsTag, "")
			return
		}
		seen[key] = true
	}

	if strings.TrimSpace(q.CorrectAnswer) == "" {
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", answerRequiredTag, "")
		return
	}
	if !seen[strings.ToLower(strings.TrimSpace(q.CorrectAnswer))] {
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", answerInOptionsTag, "")
	}
}

// contentStructValidation requires a media URL for media types and a body
// for text items.
func contentStructValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(NewContentItem)

	switch c.Type {
	case ContentVideo, ContentImage, ContentLink, ContentDocument:
		if c.MediaURL == "" {
			sl.ReportError(c.MediaURL, "media_url", "MediaURL", mediaURLTag, "")
		}
	case ContentText:
		if strings.TrimSpace(c.Body) == "" {
			sl.ReportError(c.Body, "body", "Body", bodyRequiredTag, "")
		}
	}
}
