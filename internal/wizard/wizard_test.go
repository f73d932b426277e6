package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-forms-api/internal/domain"
)

func testForm() *domain.Form {
	return &domain.Form{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Name:      "Account Opening",
		Version:   3,
		IsActive:  true,
		Schema: domain.Schema{
			{ID: "s1", Name: "Personal", Fields: []domain.Field{
				{ID: "name", Label: "Full Name", Type: domain.FieldTypeText, Required: true},
				{ID: "email", Label: "Email", Type: domain.FieldTypeEmail, Required: true},
			}},
			{ID: "s2", Name: "Documents", Fields: []domain.Field{
				{ID: "id_doc", Label: "ID Document", Type: domain.FieldTypeFile},
			}},
		},
	}
}

func acceptAll() SubmitterFunc {
	return func(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
		saved := *sub
		saved.ID = uuid.New()
		return &saved, nil
	}
}

func TestNew_StepsPerSection(t *testing.T) {
	w, err := New(testForm(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 2, w.StepCount())
	assert.Equal(t, 0, w.CurrentStep())
	assert.Equal(t, "Personal", w.Step().Name)
	assert.Equal(t, StatusEditing, w.Status())
	assert.NotEmpty(t, w.IdempotencyKey())

	_, err = New(nil, uuid.New())
	assert.ErrorIs(t, err, ErrNoForm)
}

func TestNew_EmptySchemaFallsBackToSingleStep(t *testing.T) {
	form := testForm()
	form.Schema = nil

	w, err := New(form, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, w.StepCount())
	assert.Equal(t, "Account Opening", w.Step().Name)
	assert.True(t, w.IsLastStep())
}

func TestNext_RequiredFieldBlocksAndClears(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	require.NoError(t, w.SetValue("email", "a@b.com"))

	err := w.Next()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "Full Name", verr.Errors[0].Label)
	assert.Equal(t, "Full Name is required", verr.Errors[0].Message)
	assert.Equal(t, 0, w.CurrentStep())
	assert.Len(t, w.Errors(), 1)

	require.NoError(t, w.SetValue("name", "Ada Lovelace"))
	assert.Empty(t, w.Errors(), "editing the field clears its error")

	require.NoError(t, w.Next())
	assert.Equal(t, 1, w.CurrentStep())
}

func TestValidate_EmailShape(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"a@b.com", true},
		{"not-an-email", false},
		{"a@b", false},
		{"a b@c.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w, _ := New(testForm(), uuid.New())
			require.NoError(t, w.SetValue("name", "Ada"))
			require.NoError(t, w.SetValue("email", tt.value))

			errs := w.Validate()
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				require.Len(t, errs, 1)
				assert.Equal(t, MsgInvalidEmail, errs[0].Message)
			}
		})
	}
}

func TestValidate_OptionalEmailSkipsShapeCheckWhenEmpty(t *testing.T) {
	form := testForm()
	form.Schema[0].Fields[1].Required = false
	w, _ := New(form, uuid.New())
	require.NoError(t, w.SetValue("name", "Ada"))

	assert.Empty(t, w.Validate())
}

func TestValidate_TypedFields(t *testing.T) {
	form := &domain.Form{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Schema: domain.Schema{{ID: "s", Fields: []domain.Field{
			{ID: "n", Label: "Income", Type: domain.FieldTypeNumber},
			{ID: "d", Label: "Birth date", Type: domain.FieldTypeDate},
			{ID: "c", Label: "Risk", Type: domain.FieldTypeRadio, Options: []domain.FieldOption{
				domain.StringOption("low"), {Label: "High", Value: "high"},
			}},
		}}},
	}
	w, _ := New(form, uuid.New())
	require.NoError(t, w.SetValue("n", "12k"))
	require.NoError(t, w.SetValue("d", "31/12/1990"))
	require.NoError(t, w.SetValue("c", "medium"))

	errs := w.Validate()
	require.Len(t, errs, 3)
	assert.Equal(t, "Income must be a number", errs[0].Message)
	assert.Equal(t, "Birth date must be a date (YYYY-MM-DD)", errs[1].Message)
	assert.Equal(t, "Risk must be one of the listed options", errs[2].Message)

	require.NoError(t, w.SetValue("n", "12000.50"))
	require.NoError(t, w.SetValue("d", "1990-12-31"))
	require.NoError(t, w.SetValue("c", "high"))
	assert.Empty(t, w.Validate())
}

func TestValidateNumber_RejectsNonDecimal(t *testing.T) {
	f := domain.Field{ID: "n", Label: "Income", Type: domain.FieldTypeNumber}

	for _, v := range []string{"NaN", "nan", "Inf", "+Inf", "-infinity", "0x1p-2", "0X10", "1_000", "1e999", "1.2.3", "."} {
		assert.Equal(t, "Income must be a number", validateNumber(f, v), v)
	}
	for _, v := range []string{"0", "-12", "+3.5", "12000.50", ".5", "5.", "1e6", "2.5E-3", " 42 "} {
		assert.Empty(t, validateNumber(f, v), v)
	}
}

func TestValidate_CheckboxOptions(t *testing.T) {
	boxes := domain.Field{ID: "k", Label: "Products", Type: domain.FieldTypeCheckbox, Required: true,
		Options: []domain.FieldOption{domain.StringOption("savings"), domain.StringOption("loans"), domain.StringOption("cards")}}
	consent := domain.Field{ID: "ok", Label: "Consent", Type: domain.FieldTypeCheckbox}
	schema := domain.Schema{{ID: "s", Fields: []domain.Field{boxes, consent}}}

	assert.Empty(t, CheckValues(schema, map[string]string{"k": "savings, cards", "ok": "true"}))
	assert.Empty(t, CheckValues(schema, map[string]string{"k": "loans"}))

	errs := CheckValues(schema, map[string]string{"k": "savings,crypto"})
	require.Len(t, errs, 1)
	assert.Equal(t, "Products must only contain listed options", errs[0].Message)

	errs = CheckValues(schema, map[string]string{"k": " , ,"})
	require.Len(t, errs, 1)
	assert.Equal(t, "Products is required", errs[0].Message)

	assert.Equal(t, []string{"savings", "cards"}, SplitCheckbox("savings,, cards ,"))
}

func TestValidate_WhitespaceOnlyIsEmpty(t *testing.T) {
	schema := domain.Schema{{ID: "s", Fields: []domain.Field{
		{ID: "name", Label: "Full Name", Type: domain.FieldTypeText, Required: true},
		{ID: "note", Label: "Note", Type: domain.FieldTypeText},
	}}}

	errs := CheckValues(schema, map[string]string{"name": "  \t ", "note": "   "})
	require.Len(t, errs, 1)
	assert.Equal(t, "Full Name is required", errs[0].Message)
}

func TestWithValidator_Overrides(t *testing.T) {
	form := testForm()
	w, _ := New(form, uuid.New(), WithValidator(domain.FieldTypeEmail, func(domain.Field, string) string { return "" }))
	require.NoError(t, w.SetValue("name", "Ada"))
	require.NoError(t, w.SetValue("email", "whatever"))

	assert.Empty(t, w.Validate())
}

func TestCheckValues_WholeSchema(t *testing.T) {
	form := testForm()

	errs := CheckValues(form.Schema, map[string]string{"email": "not-an-email"})
	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].FieldID)
	assert.Equal(t, "Full Name is required", errs[0].Message)
	assert.Equal(t, MsgInvalidEmail, errs[1].Message)

	assert.Empty(t, CheckValues(form.Schema, map[string]string{"name": "Ann", "email": "ann@example.com"}))
}

func TestPrevious(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	assert.False(t, w.Previous())

	require.NoError(t, w.SetValue("name", "Ada"))
	require.NoError(t, w.SetValue("email", "a@b.com"))
	require.NoError(t, w.Next())
	assert.True(t, w.Previous())
	assert.Equal(t, 0, w.CurrentStep())
}

func TestNext_NoOpOnLastStep(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	require.NoError(t, w.SetValue("name", "Ada"))
	require.NoError(t, w.SetValue("email", "a@b.com"))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	assert.Equal(t, 1, w.CurrentStep())
}

func TestSetValue_Errors(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	assert.ErrorIs(t, w.SetValue("nope", "x"), ErrUnknownField)
	assert.ErrorIs(t, w.SetFiles("name", []string{"a.pdf"}), ErrNotFileField)
}

func TestSetFiles_JoinsNames(t *testing.T) {
	w, _ := New(testForm(), uuid.New())

	require.NoError(t, w.SetFiles("id_doc", []string{"passport.pdf", "selfie.jpg"}))
	v, ok := w.Value("id_doc")
	assert.True(t, ok)
	assert.Equal(t, "passport.pdf, selfie.jpg", v)
	assert.Equal(t, []string{"passport.pdf", "selfie.jpg"}, w.Files("id_doc"))

	require.NoError(t, w.SetFiles("id_doc", nil))
	v, _ = w.Value("id_doc")
	assert.Equal(t, "", v)
	assert.Empty(t, w.Files("id_doc"))
}

func TestSubmit_RequiresLastStep(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	_, err := w.Submit(context.Background(), acceptAll())
	assert.ErrorIs(t, err, ErrNotLastStep)
}

func fillAndAdvance(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.SetValue("name", "Ada"))
	require.NoError(t, w.SetValue("email", "ada@example.com"))
	require.NoError(t, w.Next())
}

func TestSubmit_Success(t *testing.T) {
	form := testForm()
	userID := uuid.New()
	var hooked *domain.Submission
	w, _ := New(form, userID, OnSubmitted(func(s *domain.Submission) { hooked = s }))
	fillAndAdvance(t, w)
	require.NoError(t, w.SetFiles("id_doc", []string{"passport.pdf"}))

	calls := 0
	sub, err := w.Submit(context.Background(), SubmitterFunc(func(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
		calls++
		assert.Equal(t, StatusSubmitting, w.Status())
		return acceptAll()(ctx, s)
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, StatusSubmitted, w.Status())
	assert.Equal(t, form.ID, sub.FormID)
	assert.Equal(t, 3, sub.FormVersion)
	assert.Equal(t, userID, sub.CreatedBy)
	assert.Equal(t, domain.SubmissionStatusPending, sub.Status)
	require.NotNil(t, sub.IdempotencyKey)
	assert.Equal(t, w.IdempotencyKey(), *sub.IdempotencyKey)
	assert.Equal(t, domain.SubmissionData{
		{Field: 1, FieldID: "name", Value: "Ada"},
		{Field: 2, FieldID: "email", Value: "ada@example.com"},
		{Field: 3, FieldID: "id_doc", Value: "passport.pdf"},
	}, sub.Data)
	assert.Same(t, sub, hooked)
	assert.Same(t, sub, w.Result())

	_, err = w.Submit(context.Background(), acceptAll())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, w.SetValue("name", "x"), ErrAlreadySubmitted)
}

func TestSubmit_FailureAllowsRetryWithSameKey(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	fillAndAdvance(t, w)

	var keys []string
	attempt := 0
	submitter := SubmitterFunc(func(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
		attempt++
		keys = append(keys, *s.IdempotencyKey)
		if attempt == 1 {
			return nil, errors.New("network down")
		}
		return acceptAll()(ctx, s)
	})

	_, err := w.Submit(context.Background(), submitter)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, w.Status())
	assert.Equal(t, "network down", w.LastError())
	assert.Equal(t, 1, w.CurrentStep())

	_, err = w.Submit(context.Background(), submitter)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, w.Status())
	assert.Equal(t, keys[0], keys[1])
}

func TestSubmit_ValidationBlocks(t *testing.T) {
	form := testForm()
	form.Schema[1].Fields[0].Required = true
	w, _ := New(form, uuid.New())
	fillAndAdvance(t, w)

	_, err := w.Submit(context.Background(), acceptAll())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ID Document", verr.Errors[0].Label)
	assert.Equal(t, StatusEditing, w.Status())
}

func TestSubmit_ConcurrentSecondSubmitRejected(t *testing.T) {
	w, _ := New(testForm(), uuid.New())
	fillAndAdvance(t, w)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := SubmitterFunc(func(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
		close(entered)
		<-release
		return acceptAll()(ctx, s)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Submit(context.Background(), slow)
		assert.NoError(t, err)
	}()

	<-entered
	_, err := w.Submit(context.Background(), acceptAll())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	close(release)
	wg.Wait()
	assert.Equal(t, StatusSubmitted, w.Status())
}

func TestSnapshotRestore(t *testing.T) {
	form := testForm()
	w, _ := New(form, uuid.New())
	require.NoError(t, w.SetValue("email", "bad"))
	w.Validate()
	require.NoError(t, w.SetValue("name", "Ada"))

	snap := w.Snapshot()
	assert.Equal(t, form.ID, snap.FormID)
	assert.Equal(t, "Ada", snap.Values["name"])
	assert.Equal(t, MsgInvalidEmail, snap.Errors["email"])

	restored, err := Restore(form, snap)
	require.NoError(t, err)
	assert.Equal(t, w.IdempotencyKey(), restored.IdempotencyKey())
	v, _ := restored.Value("name")
	assert.Equal(t, "Ada", v)
	require.Len(t, restored.Errors(), 1)
	assert.Equal(t, "email", restored.Errors()[0].FieldID)
}

func TestRestore_DropsRemovedFieldsAndClampsStep(t *testing.T) {
	form := testForm()
	snap := Snapshot{
		FormID: form.ID,
		Step:   7,
		Values: map[string]string{"name": "Ada", "gone": "x"},
		Status: StatusSubmitting,
	}

	w, err := Restore(form, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, w.CurrentStep())
	_, ok := w.Value("gone")
	assert.False(t, ok)
	assert.Equal(t, StatusFailed, w.Status())

	snap.FormID = uuid.New()
	_, err = Restore(form, snap)
	assert.ErrorIs(t, err, ErrFormMismatch)
}

// Serialized indices always match each field's flattened position in the schema.
func TestProperty_SerializedIndicesMatchSchema(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every entry resolves back to its own field", prop.ForAll(
		func(sizes []int, mask uint64) bool {
			form := &domain.Form{BaseModel: domain.BaseModel{ID: uuid.New()}}
			n := 0
			for i, size := range sizes {
				sec := domain.Section{ID: fmt.Sprintf("s%d", i)}
				for j := 0; j < size; j++ {
					n++
					sec.Fields = append(sec.Fields, domain.Field{ID: fmt.Sprintf("f%d", n), Label: "same label", Type: domain.FieldTypeText})
				}
				form.Schema = append(form.Schema, sec)
			}
			w, err := New(form, uuid.New())
			if err != nil {
				return false
			}
			for i, f := range form.Schema.Flatten() {
				if mask&(1<<uint(i%64)) != 0 {
					if w.SetValue(f.ID, "v-"+f.ID) != nil {
						return false
					}
				}
			}
			prev := 0
			for _, entry := range w.Serialize() {
				f, ok := form.Schema.FieldAt(entry.Field)
				if !ok || f.ID != entry.FieldID || entry.Value != "v-"+f.ID || entry.Field <= prev {
					return false
				}
				prev = entry.Field
			}
			return true
		},
		gen.SliceOfN(4, gen.IntRange(0, 5)),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
