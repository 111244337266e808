// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// --- test helpers ---

func item(pid, desc, barcode string) types.Record {
	return types.Record{"pid": pid, "description": desc, "barcode": barcode}
}

func envelope(pid, desc, barcode string) types.Record {
	return types.Record{"item_data": map[string]any{"pid": pid, "description": desc, "barcode": barcode}}
}

func container(uri, indicator, typ string) types.Record {
	return types.Record{"uri": uri, "indicator": indicator, "type": typ}
}

func ids(records []types.Record, field string) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String(field)
	}
	return out
}

func dupIDs(dups []Duplicate) []string {
	out := make([]string, len(dups))
	for i, d := range dups {
		out[i] = d.ID
	}
	return out
}

func bufferLogger() (*zerolog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := zerolog.New(buf).Level(zerolog.TraceLevel)
	return &l, buf
}

func runIndicatorType(t *testing.T, sources, targets []types.Record) *Report {
	t.Helper()
	r := Run(sources, targets, IndicatorType{}, Options{})
	require.NoError(t, r.Verify(len(sources), len(targets)))
	return r
}

// --- engine behavior ---

func TestRun_ExactMatch(t *testing.T) {
	src := item("9901", "box.5", "32044000000001")
	tgt := container("/repositories/2/top_containers/1", "5", "box")

	r := runIndicatorType(t, []types.Record{src}, []types.Record{tgt})

	require.Len(t, r.Matched, 1)
	assert.Equal(t, "32044000000001", r.Matched[0].Target.String("barcode"))
	assert.Equal(t, "32044000000001", tgt.String("barcode"), "target annotated in place")
	assert.Empty(t, r.UnmatchedSource)
	assert.Empty(t, r.UnmatchedTarget)
	assert.Equal(t, IndicatorTypeName, r.Profile)
}

func TestRun_NoMatch(t *testing.T) {
	src := item("9901", "box.5", "B1")
	tgt := container("/tc/1", "7", "box")

	r := runIndicatorType(t, []types.Record{src}, []types.Record{tgt})

	assert.Empty(t, r.Matched)
	assert.Equal(t, []string{"9901"}, ids(r.UnmatchedSource, "pid"))
	assert.Equal(t, []string{"/tc/1"}, ids(r.UnmatchedTarget, "uri"))
	assert.False(t, tgt.Has("barcode"))
}

func TestRun_LeadingZeroes(t *testing.T) {
	r := runIndicatorType(t,
		[]types.Record{item("1", "box.0007", "B7")},
		[]types.Record{container("/tc/7", "7", "box")})
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "B7", r.Matched[0].Target.String("barcode"))
}

func TestRun_RestrictedSuffix(t *testing.T) {
	r := runIndicatorType(t,
		[]types.Record{item("1", "box.12 RESTRICTED", "B12")},
		[]types.Record{container("/tc/12", "12", "box")})
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "B12", r.Matched[0].Target.String("barcode"))
}

func TestRun_TypeMustMatch(t *testing.T) {
	r := runIndicatorType(t,
		[]types.Record{item("1", "box.3", "B3")},
		[]types.Record{container("/tc/3", "3", "folder")})
	assert.Empty(t, r.Matched)

	// Indicator-only ignores the type.
	r = Run([]types.Record{item("1", "box.3", "B3")}, []types.Record{container("/tc/3", "3", "folder")}, IndicatorOnly{}, Options{})
	assert.Len(t, r.Matched, 1)
}

func TestRun_DuplicateSourceEvicted(t *testing.T) {
	first := item("first", "box.5", "B1")
	second := item("second", "box.0005", "B2")
	tgt := container("/tc/5", "5", "box")
	logger, buf := bufferLogger()

	r := Run([]types.Record{first, second}, []types.Record{tgt}, IndicatorType{}, Options{Logger: logger})
	require.NoError(t, r.Verify(2, 1))

	assert.Equal(t, []string{"second", "first"}, dupIDs(r.DuplicateSource))
	assert.Equal(t, NewKey("5", "box"), r.DuplicateSource[0].Key)
	assert.Empty(t, r.DuplicateTarget)
	assert.Empty(t, r.Matched)
	assert.Empty(t, r.UnmatchedSource)
	assert.Equal(t, []string{"/tc/5"}, ids(r.UnmatchedTarget, "uri"))
	assert.False(t, tgt.Has("barcode"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "Skipping both")
}

func TestRun_DuplicateTargetEvicted(t *testing.T) {
	r := runIndicatorType(t,
		[]types.Record{item("1", "box.5", "B1")},
		[]types.Record{container("/tc/a", "5", "box"), container("/tc/b", "05", "box")})

	assert.Equal(t, []string{"/tc/b", "/tc/a"}, dupIDs(r.DuplicateTarget))
	assert.Equal(t, []string{"1"}, ids(r.UnmatchedSource, "pid"))
	assert.Empty(t, r.Matched)
}

// A third record with an evicted key is indexed as new. This mirrors the
// evict-on-collision behavior the barcoding runs have always had.
func TestRun_ThirdCollisionIsIndexedAsNew(t *testing.T) {
	sources := []types.Record{
		item("a", "box.5", "BA"),
		item("b", "box.5", "BB"),
		item("c", "box.5", "BC"),
	}
	r := runIndicatorType(t, sources, []types.Record{container("/tc/5", "5", "box")})

	assert.Equal(t, []string{"b", "a"}, dupIDs(r.DuplicateSource))
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "BC", r.Matched[0].Target.String("barcode"))
}

func TestRun_FourthCollisionPairsWithThird(t *testing.T) {
	sources := []types.Record{
		item("a", "box.5", ""),
		item("b", "box.5", ""),
		item("c", "box.5", ""),
		item("d", "box.5", ""),
	}
	r := runIndicatorType(t, sources, nil)
	assert.Equal(t, []string{"b", "a", "d", "c"}, dupIDs(r.DuplicateSource))
	assert.Empty(t, r.UnmatchedSource)
}

func TestRun_SeriesDigitFirst(t *testing.T) {
	r := Run(
		[]types.Record{item("1", "ser.C box.0025", "B25")},
		[]types.Record{container("/tc/25", "25C", "box")},
		Series{}, Options{})
	require.NoError(t, r.Verify(1, 1))
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "B25", r.Matched[0].Target.String("barcode"))
	assert.Equal(t, NewKey("25", "box", "C"), r.Matched[0].Key)
}

func TestRun_SeriesLetterFirst(t *testing.T) {
	for _, p := range []Profile{Series{}, Series{Strict: true}} {
		t.Run(p.Name(), func(t *testing.T) {
			r := Run(
				[]types.Record{item("1", "ser.SR box.130", "B130")},
				[]types.Record{container("/tc/130", "SR-130", "box")},
				p, Options{})
			require.NoError(t, r.Verify(1, 1))
			require.Len(t, r.Matched, 1)
			assert.Equal(t, "B130", r.Matched[0].Target.String("barcode"))
		})
	}
}

func TestRun_MalformedSeriesIndicator(t *testing.T) {
	logger, buf := bufferLogger()
	sources := []types.Record{item("1", "ser.C box.0025", "B25"), item("2", "ser.C box.0026", "B26")}
	targets := []types.Record{
		container("/tc/bad1", "INVALID", "box"),
		container("/tc/bad2", "INVALID", "box"),
		container("/tc/range", "C-26, C-27, and C-28", "box"),
	}

	var r *Report
	require.NotPanics(t, func() {
		r = Run(sources, targets, Series{Strict: true}, Options{Logger: logger})
	})
	require.NoError(t, r.Verify(2, 3))

	assert.Empty(t, r.Matched)
	assert.Empty(t, r.DuplicateTarget, "malformed keys never collide")
	assert.Equal(t, []string{"/tc/bad1", "/tc/bad2", "/tc/range"}, ids(r.UnmatchedTarget, "uri"))
	assert.Len(t, r.MalformedTarget, 3)
	assert.Equal(t, "/tc/bad1", r.MalformedTarget[0].ID)
	assert.Contains(t, r.MalformedTarget[0].Reason, "INVALID")
	assert.Len(t, r.UnmatchedSource, 2)
	assert.Contains(t, buf.String(), "unparseable key")
}

func TestRun_MalformedSourceDescription(t *testing.T) {
	r := runIndicatorType(t,
		[]types.Record{item("1", "no description", "B1"), item("2", "", "B2"), item("3", "box.9", "B9")},
		[]types.Record{container("/tc/9", "9", "box")})
	assert.Len(t, r.Matched, 1)
	assert.Equal(t, []string{"1", "2"}, ids(r.UnmatchedSource, "pid"))
	assert.Len(t, r.MalformedSource, 2)
}

func TestRun_UnmatchedInInputOrder(t *testing.T) {
	sources := []types.Record{item("s3", "box.3", ""), item("s1", "box.1", ""), item("s2", "box.2", "")}
	targets := []types.Record{container("/tc/9", "9", "box"), container("/tc/2", "2", "box"), container("/tc/8", "8", "box")}

	r := runIndicatorType(t, sources, targets)
	assert.Equal(t, []string{"s3", "s1"}, ids(r.UnmatchedSource, "pid"))
	assert.Equal(t, []string{"/tc/9", "/tc/8"}, ids(r.UnmatchedTarget, "uri"))
}

func TestRun_Deterministic(t *testing.T) {
	build := func() ([]types.Record, []types.Record) {
		return []types.Record{
				item("1", "box.1", "B1"), item("2", "box.2", "B2"), item("3", "box.2", "B3"), item("4", "box.bad", "B4"),
			}, []types.Record{
				container("/tc/1", "1", "box"), container("/tc/2", "2", "box"), container("/tc/4", "4", "box"),
			}
	}
	s1, t1 := build()
	s2, t2 := build()
	a := Run(s1, t1, IndicatorType{}, Options{})
	b := Run(s2, t2, IndicatorType{}, Options{})
	assert.Equal(t, a.Counts(), b.Counts())
	assert.Equal(t, ids(a.MatchedTargets(), "uri"), ids(b.MatchedTargets(), "uri"))
	assert.Equal(t, dupIDs(a.DuplicateSource), dupIDs(b.DuplicateSource))
}

func TestRun_Conservation(t *testing.T) {
	sources := []types.Record{
		item("1", "box.1", "B1"),
		item("2", "box.2", "B2"),
		item("3", "box.2", "B3"),
		item("4", "box.2", "B4"),
		item("5", "garbage", "B5"),
		item("6", "box.6", "B6"),
	}
	targets := []types.Record{
		container("/tc/1", "1", "box"),
		container("/tc/2", "2", "box"),
		container("/tc/6a", "6", "box"),
		container("/tc/6b", "6", "box"),
		container("/tc/x", "", "box"),
		container("/tc/7", "7", "box"),
	}
	r := Run(sources, targets, IndicatorType{}, Options{})

	c := r.Counts()
	assert.Equal(t, len(sources), c.Matched+c.UnmatchedSource+c.DuplicateSource)
	assert.Equal(t, len(targets), c.Matched+c.UnmatchedTarget+c.DuplicateTarget)
	require.NoError(t, r.Verify(len(sources), len(targets)))

	assert.Equal(t, 2, c.Matched) // box.1 and the surviving third box.2
	assert.Equal(t, 1, c.MalformedSource)
	assert.Equal(t, 1, c.MalformedTarget)

	err := r.Verify(len(sources)+1, len(targets))
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func TestReport_VerifyCountsPrecoded(t *testing.T) {
	r := runIndicatorType(t, []types.Record{item("1", "box.1", "B1")}, []types.Record{container("/tc/1", "1", "box")})
	r.Precoded = []types.Record{{"uri": "/tc/old", "barcode": "X"}}
	assert.NoError(t, r.Verify(1, 2))
	assert.Equal(t, 1, r.Counts().Precoded)
}

func TestRun_OverwritesExistingBarcode(t *testing.T) {
	tgt := container("/tc/1", "1", "box")
	tgt.Set("barcode", "OLD")
	runIndicatorType(t, []types.Record{item("1", "box.1", "NEW")}, []types.Record{tgt})
	assert.Equal(t, "NEW", tgt.String("barcode"))
}

func TestRun_MatchLogged(t *testing.T) {
	logger, buf := bufferLogger()
	Run([]types.Record{item("9901", "box.5", "B")}, []types.Record{container("/tc/5", "5", "box")}, IndicatorType{}, Options{Logger: logger})
	assert.Contains(t, buf.String(), "Matched item 9901 with top container /tc/5")
}

func TestRun_NilLoggerTolerated(t *testing.T) {
	assert.NotPanics(t, func() {
		Run([]types.Record{item("1", "box.1", ""), item("2", "box.1", ""), item("3", "x", "")},
			[]types.Record{container("/tc/1", "1", "box")}, IndicatorType{}, Options{Logger: nil})
	})
}

func TestRun_BradleyLinear(t *testing.T) {
	sources := []types.Record{
		envelope("p1", "box.0001", "B1"),
		envelope("p2", "box.0002", "B2"),
		envelope("p3", "box.0003 RESTRICTED", "B3"),
		envelope("p4", "nonsense", "B4"),
	}
	targets := []types.Record{
		container("/tc/1", "1", "box"),
		container("/tc/3", "3", "box"),
		container("/tc/9", "9", "box"),
	}
	r := Run(sources, targets, Bradley{}, Options{})
	require.NoError(t, r.Verify(len(sources), len(targets)))

	assert.Equal(t, []string{"/tc/1", "/tc/3"}, ids(r.MatchedTargets(), "uri"))
	assert.Equal(t, "B1", targets[0].String("barcode"))
	assert.Equal(t, "B3", targets[1].String("barcode"))
	assert.Equal(t, []string{"p2", "p4"}, ids(r.UnmatchedSource, "item_data.pid"))
	assert.Equal(t, []string{"/tc/9"}, ids(r.UnmatchedTarget, "uri"))
	assert.Empty(t, r.DuplicateSource)
	require.Len(t, r.MalformedSource, 1)
	assert.Equal(t, "p4", r.MalformedSource[0].ID)
}

func TestMatchLinear_NoDuplicateDetection(t *testing.T) {
	sources := []types.Record{item("a", "box.1", "BA"), item("b", "box.1", "BB")}
	targets := []types.Record{container("/tc/1", "1", "box")}

	out, srcBad, tgtBad := MatchLinear(sources, targets, IndicatorType{}, DefaultLayout(), nil)
	assert.Empty(t, srcBad)
	assert.Empty(t, tgtBad)
	require.Len(t, out.Matched, 1)
	assert.Equal(t, "BA", targets[0].String("barcode"))
	assert.Equal(t, []string{"b"}, ids(out.UnmatchedSource, "pid"))
}

func TestMatchLinear_AgreesWithKeyedWithoutDuplicates(t *testing.T) {
	build := func() ([]types.Record, []types.Record) {
		var sources, targets []types.Record
		for _, n := range []string{"1", "2", "3", "4", "10"} {
			sources = append(sources, item("p"+n, "box.000"+n, "B"+n))
		}
		for _, n := range []string{"2", "4", "6", "10"} {
			targets = append(targets, container("/tc/"+n, n, "box"))
		}
		return sources, targets
	}

	s1, t1 := build()
	keyed := Run(s1, t1, IndicatorType{}, Options{})

	s2, t2 := build()
	linear, _, _ := MatchLinear(s2, t2, IndicatorType{}, DefaultLayout(), nil)

	assert.Equal(t, ids(keyed.MatchedTargets(), "uri"), ids(linear.MatchedTargets(), "uri"))
	assert.Equal(t, ids(keyed.UnmatchedSource, "pid"), ids(linear.UnmatchedSource, "pid"))
	assert.Equal(t, ids(keyed.UnmatchedTarget, "uri"), ids(linear.UnmatchedTarget, "uri"))
}

func TestBuildIndex(t *testing.T) {
	records := []types.Record{
		container("/tc/1", "1", "box"),
		container("/tc/2", "2", "box"),
		container("/tc/1b", "01", "box"),
		container("/tc/3", "3", "box"),
	}
	ix, dups, bad := BuildIndex(records, IndicatorType{}.TargetKey, IndexOptions{Side: TargetSide, IDField: "uri"})

	assert.Empty(t, bad)
	assert.Equal(t, []string{"/tc/1b", "/tc/1"}, dupIDs(dups))
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []Key{NewKey("2", "box"), NewKey("3", "box")}, ix.Keys())
	assert.False(t, ix.Has(NewKey("1", "box")))
	got, ok := ix.Get(NewKey("3", "box"))
	require.True(t, ok)
	assert.Equal(t, "/tc/3", got.String("uri"))
}

func TestBuildIndex_SurvivorKeepsReinsertPosition(t *testing.T) {
	records := []types.Record{
		item("a", "box.1", ""),
		item("b", "box.1", ""),
		item("c", "box.2", ""),
		item("d", "box.1", ""),
	}
	ix, _, _ := BuildIndex(records, IndicatorType{}.SourceKey, IndexOptions{Side: SourceSide, IDField: "pid"})
	assert.Equal(t, []Key{NewKey("2", "box"), NewKey("1", "box")}, ix.Keys())
	got, _ := ix.Get(NewKey("1", "box"))
	assert.Equal(t, "d", got.String("pid"))
}

func TestBuildIndex_LogsDuplicatePerSide(t *testing.T) {
	logger, buf := bufferLogger()
	BuildIndex(
		[]types.Record{container("/tc/a", "1", "box"), container("/tc/b", "1", "box")},
		IndicatorType{}.TargetKey,
		IndexOptions{Side: TargetSide, IDField: "uri", Logger: logger},
	)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"side":"target"`)
	assert.Contains(t, lines[0], `"existing_id":"/tc/a"`)
}
