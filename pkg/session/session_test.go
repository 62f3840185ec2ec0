package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/uiresolve/pkg/core"
	"github.com/devicelab-dev/uiresolve/pkg/diagnostic"
	"github.com/devicelab-dev/uiresolve/pkg/driver/mock"
	"github.com/devicelab-dev/uiresolve/pkg/selector"
	"github.com/devicelab-dev/uiresolve/pkg/wait"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newFakeSession builds a session whose driver and wait engine share a
// clock that only moves when the engine sleeps.
func newFakeSession(t *testing.T, elements []mock.Element, opts ...Option) (*Session, *mock.Driver) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := mock.New(mock.Config{Elements: elements, Clock: clock.Now})
	opts = append([]Option{
		WithEngine(&wait.Engine{Sleep: clock.Sleep, Now: clock.Now}),
		WithMobile(false),
	}, opts...)
	s, err := New(d, opts...)
	require.NoError(t, err)
	return s, d
}

func id(value string) core.Locator {
	return core.Locator{Using: core.UsingID, Value: value}
}

func css(value string) core.Locator {
	return core.Locator{Using: core.UsingCSS, Value: value}
}

func TestNew_AppliesTimeoutsOnce(t *testing.T) {
	s, d := newFakeSession(t, []mock.Element{{ID: "e1", Locator: id("login")}})

	assert.Equal(t, []core.Timeouts{core.DefaultTimeouts()}, d.AppliedTimeouts())

	for i := 0; i < 3; i++ {
		_, err := s.Find("login", wait.Present)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, d.Calls("SetTimeouts"), "timeouts are not re-applied per lookup")
}

func TestNew_CustomTimeoutsAndReset(t *testing.T) {
	custom := core.Timeouts{Script: 5 * time.Second, PageLoad: time.Minute}
	s, d := newFakeSession(t, nil, WithTimeouts(custom))
	assert.Equal(t, custom, s.Timeouts())

	require.NoError(t, s.ResetTimeouts())
	assert.Equal(t, core.DefaultTimeouts(), s.Timeouts())
	assert.Equal(t, []core.Timeouts{custom, core.DefaultTimeouts()}, d.AppliedTimeouts())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.True(t, core.IsKind(err, core.KindNullArgument))

	d := mock.New(mock.Config{TimeoutsErr: errors.New("session gone")})
	_, err = New(d)
	assert.ErrorContains(t, err, "failed to apply timeouts")

	_, err = New(mock.New(mock.Config{}), WithPolicy(wait.FailAfter(-time.Second, 0)))
	assert.ErrorContains(t, err, "invalid default policy")
}

func TestFind_EndToEndLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("wall-clock timing test")
	}
	d := mock.New(mock.Config{Elements: []mock.Element{
		{ID: "login-btn", Locator: id("#login"), AppearAfter: 300 * time.Millisecond, Tag: "button"},
	}})
	s, err := New(d, WithMobile(false))
	require.NoError(t, err)

	start := time.Now()
	el, err := s.Find("#login", wait.Visible, wait.FailAfter(time.Second, 100*time.Millisecond))
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, core.Handle("login-btn"), el.Handle())
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestFind_TimeoutRecord(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{{ID: "e1", Locator: id("login"), Hidden: true}})

	_, err := s.Find("login", wait.Visible, wait.FailAfter(500*time.Millisecond, 50*time.Millisecond))

	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindTimeout, rec.Kind)
	assert.Equal(t, core.FamilyPublic, rec.Family())
	assert.Equal(t, "login", rec.Selector)
	assert.Equal(t, 500*time.Millisecond, rec.Wait)
}

func TestFind_ImmediateFailureIsClassified(t *testing.T) {
	s, d := newFakeSession(t, nil)

	_, err := s.Find("login", wait.Visible, wait.Immediately())

	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindNotFound, rec.Kind)
	assert.Equal(t, "no element matches login: Unable to locate element: id=login", rec.Message)
	assert.Equal(t, 1, d.Calls("FindElement"))
}

func TestFind_MessagesUseSessionTemplates(t *testing.T) {
	templates, err := diagnostic.ParseTemplates([]byte(`
internal:
  null_argument: "CUSTOM-NULL {{.Detail}}"
public:
  timeout: "CUSTOM-TIMEOUT {{.Selector}} after {{.Wait}}, wanted {{.Args.readiness}}"
  element_not_found: "CUSTOM-NF {{.Detail}}"
`))
	require.NoError(t, err)
	s, _ := newFakeSession(t, []mock.Element{{ID: "e1", Locator: id("login"), Hidden: true}},
		WithClassifier(diagnostic.NewClassifier(templates, diagnostic.DefaultTraceFilter())))

	_, err = s.Find("login", wait.Visible, wait.FailAfter(100*time.Millisecond, 50*time.Millisecond))
	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "CUSTOM-TIMEOUT login after 100ms, wanted visible", rec.Message)

	_, err = s.Find("", wait.Present)
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "CUSTOM-NULL selector text must not be empty", rec.Message)

	_, err = s.Find("nope", wait.Present, wait.Immediately())
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "CUSTOM-NF Unable to locate element: id=nope", rec.Message)
}

func TestFind_InvalidPolicyOverride(t *testing.T) {
	s, d := newFakeSession(t, []mock.Element{{ID: "e1", Locator: id("login")}})

	_, err := s.Find("login", wait.Present, wait.FailAfter(-time.Second, 50*time.Millisecond))

	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindNullArgument, rec.Kind)
	assert.True(t, rec.Internal())
	assert.Equal(t, "login", rec.Selector)
	assert.Contains(t, rec.Message, "negative wait")
	assert.Equal(t, 0, d.Calls("FindElement"))

	_, err = s.FindAll("login", wait.Policy{Mode: wait.Mode(9)})
	assert.True(t, core.IsKind(err, core.KindNullArgument))

	err = s.SetDefaultPolicy(wait.FallbackAfter(time.Second, -time.Millisecond))
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindNullArgument, rec.Kind)
	assert.Contains(t, rec.Message, "negative poll interval")
}

func TestFind_UsesDefaultPolicy(t *testing.T) {
	s, d := newFakeSession(t, nil)
	require.NoError(t, s.SetDefaultPolicy(wait.Immediately()))

	_, err := s.Find("login", wait.Present)
	require.Error(t, err)
	assert.Equal(t, 1, d.Calls("FindElement"))

	s.ResetDefaultPolicy()
	assert.Equal(t, wait.DefaultPolicy(), s.DefaultPolicy())

	assert.Error(t, s.SetDefaultPolicy(wait.Policy{Mode: wait.Mode(9)}))
	assert.Equal(t, wait.DefaultPolicy(), s.DefaultPolicy())
}

func TestFind_EmptySelectorIsInternal(t *testing.T) {
	s, d := newFakeSession(t, nil)

	_, err := s.Find("", wait.Present)

	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindNullArgument, rec.Kind)
	assert.True(t, rec.Internal())
	assert.Equal(t, 0, d.Calls("FindElement"))
}

func TestFind_FallbackKeepsSuppressedTimeout(t *testing.T) {
	s, _ := newFakeSession(t, nil)

	_, err := s.Find("login", wait.Visible, wait.FallbackAfter(200*time.Millisecond, 50*time.Millisecond))

	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindNotFound, rec.Kind)
	require.NotNil(t, rec.Suppressed)
	assert.Equal(t, core.KindTimeout, core.KindOf(rec.Suppressed))
}

func TestFind_AbsenceReturnsNil(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{{ID: "spinner", Locator: css(".spinner"), DisappearAfter: 100 * time.Millisecond}})

	el, err := s.Find(".spinner", wait.AbsentOrInvisible, wait.FailAfter(time.Second, 50*time.Millisecond))

	assert.NoError(t, err)
	assert.Nil(t, el)
}

func TestFind_Mobile(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{
		{ID: "btn", Locator: id("com.app:id/login")},
		{ID: "label", Locator: core.Locator{Using: core.UsingName, Value: "Sign in"}},
	}, WithMobile(true))

	el, err := s.Find("com.app:id/login", wait.Present, wait.Immediately())
	require.NoError(t, err)
	assert.Equal(t, core.Handle("btn"), el.Handle())

	el, err = s.Find("Sign in", wait.Present, wait.Immediately())
	require.NoError(t, err)
	assert.Equal(t, core.Handle("label"), el.Handle())
}

func TestFindIn_ScopesToParent(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{
		{ID: "form", Locator: id("login")},
		{ID: "user", Parent: "form", Locator: css("input.user")},
		{ID: "stray", Locator: css("input.user")},
	})

	form, err := s.Find("login", wait.Present)
	require.NoError(t, err)

	el, err := s.FindIn(form, "input.user", wait.Visible)
	require.NoError(t, err)
	assert.Equal(t, core.Handle("user"), el.Handle())

	_, err = s.FindIn(nil, "input.user", wait.Visible)
	assert.True(t, core.IsKind(err, core.KindNullArgument))
}

func TestFindAs_Override(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{
		{ID: "a", Locator: core.Locator{Using: core.UsingXPath, Value: "//a[@id='x']"}},
		{ID: "dotted", Locator: id("user.name")},
	})

	el, err := s.FindAs(selector.KindXPath, "//a[@id='x']", wait.Present)
	require.NoError(t, err)
	assert.Equal(t, core.Handle("a"), el.Handle())

	el, err = s.FindAs(selector.KindID, "user.name", wait.Present)
	require.NoError(t, err)
	assert.Equal(t, core.Handle("dotted"), el.Handle())
}

func TestFindAllAndNth(t *testing.T) {
	s, _ := newFakeSession(t, []mock.Element{
		{ID: "i1", Locator: css("li.item")},
		{ID: "i2", Locator: css("li.item"), AppearAfter: 100 * time.Millisecond},
		{ID: "i3", Locator: css("li.item"), AppearAfter: 100 * time.Millisecond},
	})

	els, err := s.FindAll("li.item")
	require.NoError(t, err)
	assert.Len(t, els, 1, "returns as soon as one match is present")

	el, err := s.FindNth("li.item", 0)
	require.NoError(t, err)
	assert.Equal(t, core.Handle("i1"), el.Handle())

	_, err = s.FindNth("li.item", 4)
	var rec *core.ExceptionRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, core.KindInvalidIndex, rec.Kind)
	assert.True(t, rec.Internal())
	assert.Equal(t, "index 4 out of range for li.item (1 matches)", rec.Message)
}

func TestFindAll_FallbackMakesOneFinalCall(t *testing.T) {
	s, d := newFakeSession(t, nil)

	els, err := s.FindAll("li.item", wait.FallbackAfter(100*time.Millisecond, 50*time.Millisecond))

	require.NoError(t, err)
	assert.Empty(t, els)
	assert.Equal(t, 1, d.Calls("FindElements"))
}

func TestFindAll_Timeout(t *testing.T) {
	s, _ := newFakeSession(t, nil)

	_, err := s.FindAll("li.item", wait.FailAfter(100*time.Millisecond, 50*time.Millisecond))
	assert.True(t, core.IsKind(err, core.KindTimeout))

	els, err := s.FindAll("li.item", wait.Immediately())
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestDelivery_CollectErrors(t *testing.T) {
	s, _ := newFakeSession(t, nil, WithDeliveryMode(diagnostic.CollectErrors))
	selectors := []string{"first", "second", "third", "fourth"}

	aborts := 0
	for _, text := range selectors {
		el, err := s.Find(text, wait.Visible, wait.FailAfter(100*time.Millisecond, 50*time.Millisecond))
		if err != nil {
			aborts++
		}
		assert.Nil(t, el)
	}

	assert.Equal(t, 0, aborts)
	collected := s.CollectedExceptions()
	require.Len(t, collected, len(selectors))
	for i, rec := range collected {
		assert.Equal(t, selectors[i], rec.Selector)
		assert.Equal(t, core.KindTimeout, rec.Kind)
	}

	s.ClearCollectedExceptions()
	assert.Empty(t, s.CollectedExceptions())
}

func TestDelivery_ThrowImmediately(t *testing.T) {
	s, _ := newFakeSession(t, nil)
	assert.Equal(t, diagnostic.ThrowImmediately, s.DeliveryMode())

	var first error
	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.Find(text, wait.Visible, wait.Immediately()); err != nil {
			first = err
			break
		}
	}

	var rec *core.ExceptionRecord
	require.ErrorAs(t, first, &rec)
	assert.Equal(t, "first", rec.Selector)
	assert.Empty(t, s.CollectedExceptions())
}

func TestDelivery_SwitchAndDrain(t *testing.T) {
	s, _ := newFakeSession(t, nil)

	s.SetDeliveryMode(diagnostic.CollectErrors)
	_, err := s.Find("missing", wait.Present, wait.Immediately())
	require.NoError(t, err)

	drained := s.DrainCollectedExceptions()
	assert.Len(t, drained, 1)
	assert.Empty(t, s.CollectedExceptions())

	s.SetDeliveryMode(diagnostic.ThrowImmediately)
	_, err = s.Find("missing", wait.Present, wait.Immediately())
	assert.Error(t, err)
}
