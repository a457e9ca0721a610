package modelmap

// ErrorTranslator is an option that can be passed to NewSerializer, NewRowMapper and the RowMapper read methods
//
// and is called with any (non-validation) errors so that they can be translated (or wrapped)
//
// Is particularly useful for translating sql.ErrNoRows errors to your own 'not found' errors
type ErrorTranslator interface {
	// Translate translates the passed error
	Translate(error) error
}

func translateError(err error, translator ErrorTranslator) error {
	if err == nil {
		return nil
	}
	return translator.Translate(err)
}

// ErrorTranslatorFunc is a func adapter for ErrorTranslator
type ErrorTranslatorFunc func(error) error

var _ ErrorTranslator = ErrorTranslatorFunc(nil)

func (f ErrorTranslatorFunc) Translate(err error) error {
	return f(err)
}

var defaultErrorTranslator ErrorTranslator = &defErrorTranslator{}

type defErrorTranslator struct{}

func (e *defErrorTranslator) Translate(err error) error {
	return err
}
