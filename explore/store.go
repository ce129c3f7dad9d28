package explore

import (
	"fmt"
	"slices"

	"github.com/kshedden/glmexplore/logging"
)

// Selection names the variable, or pair of variables, being plotted.
// Secondary is empty for a single-variable plot.  Levels restricts the
// secondary levels drawn, nil means all.
type Selection struct {
	Primary   string
	Secondary string
	Levels    []string
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.Primary == ""
}

// IsPair reports whether an interaction is selected.
func (s Selection) IsPair() bool {
	return s.Secondary != ""
}

// State is everything the user interface displays.  States are values,
// actions produce new states.
type State struct {
	Session   *Session
	Settings  ViewSettings
	Selection Selection
}

// NewState returns the state for a freshly fit session.
func NewState(s *Session, settings ViewSettings) (State, error) {
	if err := settings.Validate(); err != nil {
		return State{}, err
	}
	return State{Session: s, Settings: settings}, nil
}

// Action is a user request that changes the state.
type Action interface {
	apply(State) (State, error)
}

// RefitFormula refits the model with a new formula.
type RefitFormula struct {
	Formula string
}

// RefitFamily refits the model with a new family.
type RefitFamily struct {
	Family Family
}

// ApplySettings replaces the view settings.
type ApplySettings struct {
	Settings ViewSettings
}

// SelectVariable selects a single regressor to plot.
type SelectVariable struct {
	Name string
}

// SelectPair selects two regressors for an interaction plot.
type SelectPair struct {
	Primary   string
	Secondary string
	Levels    []string
}

// ClearSelection removes the current selection.
type ClearSelection struct{}

// Reduce applies the action to the state.  On error the input state is
// returned unchanged.
func Reduce(s State, a Action) (State, error) {
	next, err := a.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// refitted clears the selection when the fit actually changed.
func refitted(s State, sess *Session) State {
	if sess.Fingerprint() != s.Session.Fingerprint() {
		s.Selection = Selection{}
	}
	s.Session = sess
	return s
}

func (a RefitFormula) apply(s State) (State, error) {
	sess, err := s.Session.Refit(a.Formula)
	if err != nil {
		return s, err
	}
	return refitted(s, sess), nil
}

func (a RefitFamily) apply(s State) (State, error) {
	sess, err := s.Session.RefitFamily(a.Family)
	if err != nil {
		return s, err
	}
	return refitted(s, sess), nil
}

func (a ApplySettings) apply(s State) (State, error) {
	if err := a.Settings.Validate(); err != nil {
		return s, err
	}
	s.Settings = a.Settings

	// Bucket labels depend on the settings.
	if s.Selection.IsPair() && len(s.Selection.Levels) > 0 {
		if _, err := checkLevels(s, s.Selection.Secondary, s.Selection.Levels); err != nil {
			s.Selection.Levels = nil
		}
	}

	return s, nil
}

func (a SelectVariable) apply(s State) (State, error) {
	if _, err := s.Session.Key(a.Name, s.Settings); err != nil {
		return s, err
	}
	s.Selection = Selection{Primary: a.Name}
	return s, nil
}

func (a SelectPair) apply(s State) (State, error) {
	if err := CheckPair(s.Session, a.Primary, a.Secondary); err != nil {
		return s, err
	}
	levels, err := checkLevels(s, a.Secondary, a.Levels)
	if err != nil {
		return s, err
	}
	s.Selection = Selection{Primary: a.Primary, Secondary: a.Secondary, Levels: levels}
	return s, nil
}

func (a ClearSelection) apply(s State) (State, error) {
	s.Selection = Selection{}
	return s, nil
}

// CheckPair validates the variables of an interaction selection.
func CheckPair(sess *Session, primary, secondary string) error {
	for _, na := range []string{primary, secondary} {
		if na == "" {
			return selectionErrorf("two variables are needed for an interaction")
		}
		if !sess.Regressors().Has(na) {
			return selectionErrorf("unknown variable %q", na)
		}
	}
	if primary == secondary {
		return selectionErrorf("the interaction variables must differ, both are %q", primary)
	}
	return nil
}

// checkLevels returns a copy of levels after checking that each is a
// level of the secondary variable.
func checkLevels(s State, secondary string, levels []string) ([]string, error) {

	if len(levels) == 0 {
		return nil, nil
	}

	key, err := s.Session.Key(secondary, s.Settings)
	if err != nil {
		return nil, err
	}
	for _, lev := range levels {
		if !slices.Contains(key.Levels, lev) {
			return nil, selectionErrorf("%q is not a level of %s", lev, secondary)
		}
	}

	return slices.Clone(levels), nil
}

// Observer is called after each successful action.
type Observer func(prev, cur State)

// Store holds the current state.  It is not safe for concurrent use.
type Store struct {
	state     State
	observers []Observer
}

// NewStore returns a store holding the initial state.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current state.
func (st *Store) State() State {
	return st.state
}

// Subscribe registers an observer.
func (st *Store) Subscribe(o Observer) {
	st.observers = append(st.observers, o)
}

// Dispatch applies the action.  Observers are notified only when the
// action succeeds.
func (st *Store) Dispatch(a Action) error {

	logging.Logger().Debug("dispatch", "action", fmt.Sprintf("%T", a))

	next, err := Reduce(st.state, a)
	if err != nil {
		logging.Logger().Info("action rejected", "action", fmt.Sprintf("%T", a), "error", err)
		return err
	}

	prev := st.state
	st.state = next
	for _, o := range st.observers {
		o(prev, next)
	}

	return nil
}
