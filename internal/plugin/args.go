package plugin

import (
	"errors"
	"reflect"
	"strings"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report host-facing argument names rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("arg"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook accepts amounts as JSON numbers, integers or numeric strings.
func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	if d, ok := data.(decimal.Decimal); ok {
		return d, nil
	}
	s, err := cast.ToStringE(data)
	if err != nil {
		return nil, err
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// trimHook drops surrounding whitespace so "  " counts as empty.
func trimHook(_ reflect.Type, _ reflect.Type, data any) (any, error) {
	if s, ok := data.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return data, nil
}

// decodeArgs decodes the loosely typed host argument bag into out and runs
// struct validation. Any failure is reported as INVALID_ARGUMENTS.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "arg",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimHook,
			decimalHook,
		),
	})
	if err != nil {
		return bridgeerr.Unexpected(err)
	}
	if err := dec.Decode(args); err != nil {
		return bridgeerr.InvalidArguments("malformed arguments: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return bridgeerr.InvalidArguments("invalid arguments: %v", err)
	}

	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[name] = rule
		if fe.Tag() == "required" {
			msgs = append(msgs, "missing "+name)
		} else {
			msgs = append(msgs, "invalid "+name+" ("+rule+")")
		}
	}

	return bridgeerr.InvalidArguments("%s", strings.Join(msgs, ", ")).
		WithDetails(map[string]any{"fields": fields})
}

type idArgs struct {
	ControllerID string `arg:"controllerId" validate:"required"`
}

type viewArgs struct {
	ViewID string `arg:"viewId" validate:"required"`
}
