package explore

import (
	"testing"

	"github.com/kshedden/glmexplore/bins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []State
}

func (r *recorder) observe(prev, cur State) {
	r.calls = append(r.calls, cur)
}

func newStore(t *testing.T) (*Store, *recorder) {
	t.Helper()
	st, err := NewState(fitSession(t, yCont, "x1", Gaussian), DefaultViewSettings())
	require.NoError(t, err)
	store := NewStore(st)
	rec := &recorder{}
	store.Subscribe(rec.observe)
	return store, rec
}

func TestSelectVariable(t *testing.T) {

	store, rec := newStore(t)

	require.NoError(t, store.Dispatch(SelectVariable{Name: "x2"}))
	assert.Equal(t, Selection{Primary: "x2"}, store.State().Selection)
	assert.Len(t, rec.calls, 1)

	err := store.Dispatch(SelectVariable{Name: "nope"})
	assert.ErrorIs(t, err, ErrSelection)
	err = store.Dispatch(SelectVariable{})
	assert.ErrorIs(t, err, ErrSelection)

	assert.Len(t, rec.calls, 1, "failed actions do not notify")
	assert.Equal(t, "x2", store.State().Selection.Primary)

	require.NoError(t, store.Dispatch(ClearSelection{}))
	assert.True(t, store.State().Selection.IsEmpty())
}

func TestSelectPair(t *testing.T) {

	store, _ := newStore(t)

	for _, a := range []SelectPair{
		{Primary: "x1", Secondary: "x1"},
		{Primary: "x1"},
		{Primary: "x1", Secondary: "nope"},
		{Primary: "x1", Secondary: "g", Levels: []string{"z"}},
	} {
		assert.ErrorIs(t, store.Dispatch(a), ErrSelection)
	}
	assert.True(t, store.State().Selection.IsEmpty())

	require.NoError(t, store.Dispatch(SelectPair{Primary: "x1", Secondary: "g", Levels: []string{"a", "c"}}))
	sel := store.State().Selection
	assert.True(t, sel.IsPair())
	assert.Equal(t, []string{"a", "c"}, sel.Levels)
}

func TestRefitActions(t *testing.T) {

	store, rec := newStore(t)
	require.NoError(t, store.Dispatch(SelectVariable{Name: "g"}))
	first := store.State().Session

	// An identical fit keeps the selection.
	require.NoError(t, store.Dispatch(RefitFormula{Formula: "x1"}))
	assert.Equal(t, "g", store.State().Selection.Primary)
	assert.NotSame(t, first, store.State().Session)

	// A failed refit leaves the state alone.
	err := store.Dispatch(RefitFormula{Formula: "x1 + nope"})
	assert.ErrorIs(t, err, ErrFormula)
	assert.Equal(t, "x1", store.State().Session.Formula())
	err = store.Dispatch(RefitFamily{Family: Binomial})
	assert.ErrorIs(t, err, ErrFit)
	assert.Equal(t, Gaussian, store.State().Session.Family())
	assert.Len(t, rec.calls, 2)

	// A new fit clears the selection.
	require.NoError(t, store.Dispatch(RefitFormula{Formula: "x1 + x2"}))
	assert.True(t, store.State().Selection.IsEmpty())
	assert.Equal(t, "x1 + x2", store.State().Session.Formula())

	require.NoError(t, store.Dispatch(RefitFamily{Family: Gamma}))
	assert.Equal(t, Gamma, store.State().Session.Family())
	assert.Equal(t, "x1", first.Formula())
}

func TestApplySettings(t *testing.T) {

	store, rec := newStore(t)

	err := store.Dispatch(ApplySettings{Settings: ViewSettings{MaxLevels: 1, BinMethod: bins.MethodUniform}})
	assert.ErrorIs(t, err, ErrSettings)
	err = store.Dispatch(ApplySettings{Settings: ViewSettings{MaxLevels: 5, BinMethod: "kmeans"}})
	assert.ErrorIs(t, err, ErrSettings)
	assert.Empty(t, rec.calls)

	// Bucket labels change with the settings, so level choices are reset.
	require.NoError(t, store.Dispatch(ApplySettings{Settings: ViewSettings{MaxLevels: 3, BinMethod: bins.MethodUniform}}))
	key, err := store.State().Session.Key("x2", store.State().Settings)
	require.NoError(t, err)
	require.NoError(t, store.Dispatch(SelectPair{Primary: "x1", Secondary: "x2", Levels: key.Levels[:1]}))

	require.NoError(t, store.Dispatch(ApplySettings{Settings: ViewSettings{MaxLevels: 4, BinMethod: bins.MethodQuantile}}))
	assert.Equal(t, "x2", store.State().Selection.Secondary)
	assert.Nil(t, store.State().Selection.Levels)
	assert.Equal(t, bins.MethodQuantile, store.State().Settings.BinMethod)
}

func TestReduceReturnsInput(t *testing.T) {

	store, _ := newStore(t)
	st := store.State()

	next, err := Reduce(st, SelectVariable{Name: "nope"})
	assert.Error(t, err)
	assert.Equal(t, st, next)
}
