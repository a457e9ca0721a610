package modelmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntityValue() *testEntity {
	nick := "bob"
	rank := int64(4)
	return &testEntity{
		ID:        7,
		Name:      "widget",
		Nickname:  &nick,
		Active:    true,
		Amount:    decimal.RequireFromString("12.5"),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:    "done",
		ParentID:  3,
		Rank:      &rank,
	}
}

func validTestData() map[string]any {
	return map[string]any{
		"name":       "widget",
		"amount":     "1.25",
		"created_at": "2024-01-02T03:04:05Z",
	}
}

func TestNewSerializer(t *testing.T) {
	s, err := NewSerializer[testEntity](testSchema, Title("Test"), nil,
		ReferenceCheckerFunc(func(ctx context.Context, model string, pk int64) (bool, error) { return true, nil }),
		ErrorTranslatorFunc(func(err error) error { return err }))
	require.NoError(t, err)
	assert.Same(t, testSchema, s.Schema())

	_, err = NewSerializer[testEntity](testSchema, "unknown")
	require.Error(t, err)
	assert.Equal(t, "unknown option type: string", err.Error())

	_, err = NewSerializer[testEntity](nil)
	require.Error(t, err)

	require.Panics(t, func() {
		_ = MustNewSerializer[testEntity](testSchema, 42)
	})
}

func TestSerializer_Serialize(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)

	data := s.Serialize(testEntityValue())
	assert.Equal(t, map[string]any{
		"id":         int64(7),
		"name":       "widget",
		"nickname":   "bob",
		"active":     true,
		"amount":     "12.50",
		"created_at": "2024-01-02T03:04:05Z",
		"deleted_at": nil,
		"status":     "done",
		"parent_id":  int64(3),
		"rank":       int64(4),
	}, data)

	assert.Nil(t, s.Serialize(nil))

	zero := s.Serialize(&testEntity{})
	assert.Len(t, zero, len(testNames))
	for _, name := range testNames {
		_, ok := zero[name]
		assert.True(t, ok, name)
	}
	assert.Equal(t, int64(0), zero["id"])
	assert.Equal(t, "0.00", zero["amount"])
	assert.Nil(t, zero["nickname"])
}

func TestSerializer_SerializeMany(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	many := s.SerializeMany([]testEntity{{ID: 1}, {ID: 2}})
	require.Len(t, many, 2)
	assert.Equal(t, int64(1), many[0]["id"])
	assert.Equal(t, int64(2), many[1]["id"])

	empty := s.SerializeMany(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSerializer_RoundTrip(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	deleted := time.Date(2023, 12, 31, 23, 59, 59, 123456000, time.FixedZone("X", 3600))
	entities := []*testEntity{
		testEntityValue(),
		{Name: "a", Amount: decimal.Zero, CreatedAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Status: "new"},
		{ID: 99, Name: "ñ", Amount: decimal.RequireFromString("-999.99"), CreatedAt: time.Unix(1700000000, 0).UTC(), DeletedAt: &deleted, Status: "done", ParentID: 1},
	}
	for _, e := range entities {
		data := s.Serialize(e)
		got, err := s.Deserialize(ctx, data)
		require.NoError(t, err)
		again := s.Serialize(got)
		// read-only fields are not restored by deserialization
		assert.Equal(t, int64(0), again["id"])
		again["id"] = data["id"]
		assert.Equal(t, data, again)
	}
}

func TestSerializer_Deserialize(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)

	data := validTestData()
	data["id"] = 123
	data["unknown"] = "ignored"
	e, err := s.Deserialize(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.ID)
	assert.Equal(t, "widget", e.Name)
	assert.True(t, decimal.RequireFromString("1.25").Equal(e.Amount))
	assert.True(t, e.Active, "default applied")
	assert.Equal(t, "new", e.Status, "default applied")
	assert.Nil(t, e.Nickname)
	assert.Nil(t, e.Rank)
	assert.Equal(t, int64(0), e.ParentID)
}

func TestSerializer_Deserialize_Failures(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	testCases := []struct {
		name   string
		data   map[string]any
		expect ValidationErrors
	}{
		{
			name: "empty",
			data: map[string]any{},
			expect: ValidationErrors{
				"name":       {"This field is required."},
				"amount":     {"This field is required."},
				"created_at": {"This field is required."},
			},
		},
		{
			name: "nulls",
			data: map[string]any{"name": nil, "amount": nil, "created_at": nil, "nickname": nil, "rank": nil},
			expect: ValidationErrors{
				"name":       {"This field may not be null."},
				"amount":     {"This field may not be null."},
				"created_at": {"This field may not be null."},
			},
		},
		{
			name: "wrong types",
			data: map[string]any{"name": true, "amount": "x", "created_at": 5, "active": "sometimes", "parent_id": "p"},
			expect: ValidationErrors{
				"name":       {"Not a valid string."},
				"amount":     {"A valid number is required."},
				"created_at": {"Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."},
				"active":     {"Must be a valid boolean."},
				"parent_id":  {"Incorrect type. Expected pk value, received str."},
			},
		},
		{
			name: "constraints",
			data: map[string]any{"name": "abcdefghijklm", "amount": "1.999", "created_at": "2024-01-02T03:04:05Z", "status": "lost", "rank": 20},
			expect: ValidationErrors{
				"name":   {"Ensure this field has no more than 10 characters."},
				"amount": {"Ensure that there are no more than 2 decimal places."},
				"status": {`"lost" is not a valid choice.`},
				"rank":   {"Ensure this value is less than or equal to 10."},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := s.Deserialize(ctx, tc.data)
			assert.Nil(t, e)
			require.Error(t, err)
			ve, ok := AsValidationErrors(err)
			require.True(t, ok)
			assert.Equal(t, tc.expect, ve)
		})
	}
}

func TestSerializer_DeserializeInto(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)

	t.Run("full update", func(t *testing.T) {
		target := testEntityValue()
		err := s.DeserializeInto(ctx, target, validTestData(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(7), target.ID)
		assert.Equal(t, "widget", target.Name)
		// defaults only apply on create
		assert.Equal(t, "done", target.Status)
		assert.NotNil(t, target.Nickname)
	})
	t.Run("partial update", func(t *testing.T) {
		target := testEntityValue()
		err := s.DeserializeInto(ctx, target, map[string]any{"name": "gadget", "nickname": nil}, true)
		require.NoError(t, err)
		assert.Equal(t, "gadget", target.Name)
		assert.Nil(t, target.Nickname)
		assert.True(t, decimal.RequireFromString("12.5").Equal(target.Amount))
		assert.Equal(t, int64(4), *target.Rank)
	})
	t.Run("partial empty", func(t *testing.T) {
		target := testEntityValue()
		err := s.DeserializeInto(ctx, target, map[string]any{}, true)
		require.NoError(t, err)
		assert.Equal(t, testEntityValue(), target)
	})
	t.Run("target untouched on failure", func(t *testing.T) {
		target := testEntityValue()
		err := s.DeserializeInto(ctx, target, map[string]any{"name": "changed", "amount": "bad"}, true)
		require.Error(t, err)
		assert.Equal(t, testEntityValue(), target)
	})
	t.Run("nil target", func(t *testing.T) {
		err := s.DeserializeInto(ctx, nil, validTestData(), false)
		require.Error(t, err)
	})
}

func TestSerializer_ReferenceChecker(t *testing.T) {
	var checked []string
	checker := ReferenceCheckerFunc(func(ctx context.Context, model string, pk int64) (bool, error) {
		checked = append(checked, model)
		switch pk {
		case 500:
			return false, errors.New("connection refused")
		case 404:
			return false, nil
		}
		return true, nil
	})
	s := MustNewSerializer[testEntity](testSchema, checker)

	data := validTestData()
	data["parent_id"] = 5
	e, err := s.Deserialize(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.ParentID)
	assert.Equal(t, []string{"parent"}, checked)

	data["parent_id"] = 404
	_, err = s.Deserialize(ctx, data)
	require.Error(t, err)
	ve, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{`Invalid pk "404" - object does not exist.`}, ve["parent_id"])

	data["parent_id"] = 500
	_, err = s.Deserialize(ctx, data)
	require.Error(t, err)
	_, ok = AsValidationErrors(err)
	assert.False(t, ok)
	assert.Equal(t, "checking parent reference 500: connection refused", err.Error())

	data["parent_id"] = "abc"
	checked = nil
	_, err = s.Deserialize(ctx, data)
	require.Error(t, err)
	assert.Empty(t, checked, "checker not consulted for invalid pk")
}

func TestSerializer_ReferenceChecker_ErrorTranslator(t *testing.T) {
	sentinel := errors.New("service unavailable")
	s := MustNewSerializer[testEntity](testSchema,
		ReferenceCheckerFunc(func(ctx context.Context, model string, pk int64) (bool, error) {
			return false, errors.New("boom")
		}),
		ErrorTranslatorFunc(func(err error) error {
			return errors.Join(sentinel, err)
		}))
	data := validTestData()
	data["parent_id"] = 1
	_, err := s.Deserialize(ctx, data)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestSerializer_WriteJSON(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	var buf bytes.Buffer
	err := s.WriteJSON(&buf, testEntityValue())
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"name":"widget","nickname":"bob","active":true,"amount":"12.50","created_at":"2024-01-02T03:04:05Z","deleted_at":null,"status":"done","parent_id":3,"rank":4}`, buf.String())

	buf.Reset()
	err = s.WriteJSON(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, `null`, buf.String())
}

func TestSerializer_WriteManyJSON(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	var buf bytes.Buffer
	err := s.WriteManyJSON(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, buf.String())

	buf.Reset()
	err = s.WriteManyJSON(&buf, []testEntity{*testEntityValue(), *testEntityValue()})
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "12.50", decoded[1]["amount"])
}

func TestSerializer_ReadJSON(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)

	_, err := s.ReadJSON(ctx, strings.NewReader(`{"name":"w","amount":1.5,"created_at":"2024-01-02T03:04:05Z","rank":9007199254740993}`))
	require.Error(t, err, "rank beyond max")

	e, err := s.ReadJSON(ctx, strings.NewReader(`{"name":"w","amount":1.5,"created_at":"2024-01-02T03:04:05Z","parent_id":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), e.ParentID)
	assert.Equal(t, "1.50", s.Serialize(e)["amount"])

	_, err = s.ReadJSON(ctx, strings.NewReader(`{"name":`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRepresentation)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "JSON parse error - unexpected EOF", pe.Detail)
	assert.Equal(t, "malformed representation: JSON parse error - unexpected EOF", err.Error())

	e, err = s.ReadJSON(ctx, strings.NewReader(`{"name":"w","amount":1,"created_at":"2024-01-02T03:04:05Z"} this is not json`))
	require.Error(t, err)
	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrMalformedRepresentation)

	_, err = s.ReadJSON(ctx, strings.NewReader(`{"name":"w","amount":1,"created_at":"2024-01-02T03:04:05Z"}{}`))
	assert.ErrorIs(t, err, ErrMalformedRepresentation)

	_, err = s.ReadJSON(ctx, strings.NewReader("{\"name\":\"w\",\"amount\":1,\"created_at\":\"2024-01-02T03:04:05Z\"}\n  \n"))
	require.NoError(t, err, "trailing whitespace is allowed")

	_, err = s.ReadJSON(ctx, strings.NewReader(``))
	require.Error(t, err)
	ve, ok := AsValidationErrors(err)
	require.True(t, ok, "empty body is an empty object")
	assert.Equal(t, []string{"amount", "created_at", "name"}, ve.Fields())

	_, err = s.ReadJSON(ctx, strings.NewReader(`[1,2]`))
	require.Error(t, err)
	ve, ok = AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Invalid data. Expected a dictionary, but got list."}, ve[NonFieldErrorsKey])

	_, err = s.ReadJSON(ctx, strings.NewReader(`"text"`))
	require.Error(t, err)
	ve, ok = AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Invalid data. Expected a dictionary, but got str."}, ve[NonFieldErrorsKey])
}

func TestSerializer_ReadJSONInto(t *testing.T) {
	s := MustNewSerializer[testEntity](testSchema)
	target := testEntityValue()
	err := s.ReadJSONInto(ctx, strings.NewReader(`{"status":"new"}`), target, true)
	require.NoError(t, err)
	assert.Equal(t, "new", target.Status)
	assert.Equal(t, "widget", target.Name)

	err = s.ReadJSONInto(ctx, strings.NewReader(`{"status":"new"}`), target, false)
	require.Error(t, err)
	ve, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"amount", "created_at", "name"}, ve.Fields())

	err = s.ReadJSONInto(ctx, strings.NewReader(`nope`), target, true)
	assert.ErrorIs(t, err, ErrMalformedRepresentation)
}

type nullableEntity struct {
	Count *int64
	Label *string
	Flag  *bool
	Price decimal.NullDecimal
	At    *time.Time
	Ref   *int64
}

var nullableSchema = MustNewSchema[nullableEntity](
	NullIntField("count",
		func(e *nullableEntity) *int64 { return e.Count },
		func(e *nullableEntity, v *int64) { e.Count = v }),
	NullStringField("label",
		func(e *nullableEntity) *string { return e.Label },
		func(e *nullableEntity, v *string) { e.Label = v }),
	NullBoolField("flag",
		func(e *nullableEntity) *bool { return e.Flag },
		func(e *nullableEntity, v *bool) { e.Flag = v }),
	NullDecimalField("price",
		func(e *nullableEntity) decimal.NullDecimal { return e.Price },
		func(e *nullableEntity, v decimal.NullDecimal) { e.Price = v },
		DecimalPlaces(2)),
	NullDateTimeField("at",
		func(e *nullableEntity) *time.Time { return e.At },
		func(e *nullableEntity, v *time.Time) { e.At = v }),
	NullReferenceField("ref", "parent",
		func(e *nullableEntity) *int64 { return e.Ref },
		func(e *nullableEntity, v *int64) { e.Ref = v }),
)

func TestSerializer_NullableRoundTrip(t *testing.T) {
	var checked []int64
	s := MustNewSerializer[nullableEntity](nullableSchema,
		ReferenceCheckerFunc(func(ctx context.Context, model string, pk int64) (bool, error) {
			checked = append(checked, pk)
			return true, nil
		}))
	nulls := map[string]any{"count": nil, "label": nil, "flag": nil, "price": nil, "at": nil, "ref": nil}

	e, err := s.Deserialize(ctx, nulls)
	require.NoError(t, err)
	assert.Equal(t, nulls, s.Serialize(e))
	assert.Empty(t, checked, "null references are not checked")

	again, err := s.Deserialize(ctx, s.Serialize(e))
	require.NoError(t, err)
	assert.Equal(t, nulls, s.Serialize(again))

	values := map[string]any{"count": int64(0), "label": "x", "flag": false, "price": "0.00", "at": "2024-01-02T03:04:05Z", "ref": int64(9)}
	e, err = s.Deserialize(ctx, values)
	require.NoError(t, err)
	assert.Equal(t, values, s.Serialize(e))
	assert.Equal(t, []int64{9}, checked)

	empty, err := s.Deserialize(ctx, map[string]any{})
	require.NoError(t, err, "nullable fields are not required")
	assert.Equal(t, nulls, s.Serialize(empty))

	doc := s.JSONSchema()["properties"].(map[string]any)
	assert.Equal(t, []string{"boolean", "null"}, doc["flag"].(map[string]any)["type"])
	assert.Equal(t, []string{"integer", "null"}, doc["ref"].(map[string]any)["type"])
}

func TestNonNullableFields_RejectNull(t *testing.T) {
	type plain struct {
		Count int64
		Flag  bool
		Ref   int64
	}
	s := MustNewSerializer[plain](MustNewSchema[plain](
		IntField("count", func(e *plain) int64 { return e.Count }, func(e *plain, v int64) { e.Count = v }, Optional(true)),
		BoolField("flag", func(e *plain) bool { return e.Flag }, func(e *plain, v bool) { e.Flag = v }, Optional(true)),
		ReferenceField("ref", "parent", func(e *plain) int64 { return e.Ref }, func(e *plain, v int64) { e.Ref = v }, Optional(true)),
	))
	_, err := s.Deserialize(ctx, map[string]any{"count": nil, "flag": nil, "ref": nil})
	require.Error(t, err)
	ve, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, ValidationErrors{
		"count": {"This field may not be null."},
		"flag":  {"This field may not be null."},
		"ref":   {"This field may not be null."},
	}, ve)

	_, err = NewSchema[plain](IntField("count", func(e *plain) int64 { return e.Count }, func(e *plain, v int64) { e.Count = v }, Default{}))
	require.Error(t, err)
	assert.Equal(t, `field "count": null default requires a nullable field`, err.Error())

	f := NullReferenceField[plain]("ref", "", func(e *plain) *int64 { return nil }, func(e *plain, v *int64) {})
	_, err = NewSchema[plain](f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must name the referenced model")
}
