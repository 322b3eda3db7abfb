package disc

import "testing"

func titleWith(id, duration int, langs ...string) Title {
	title := Title{ID: id, Duration: duration}
	for _, lang := range langs {
		title.Audio = append(title.Audio, AudioStream{LangCode: lang})
	}
	return title
}

func TestSelectFeaturesEndToEnd(t *testing.T) {
	source := &Disc{Titles: []Title{
		titleWith(0, 1200, "eng"),
		titleWith(1, 5400, "eng", "deu"),
	}}
	got := SelectFeatures(source, []int{5400}, []string{"eng"})
	if len(got.Titles) != 1 || got.Titles[0].ID != 1 {
		t.Fatalf("selected %+v, want only title 1", got.Titles)
	}
	if len(source.Titles) != 2 {
		t.Fatal("source disc was modified")
	}
}

func TestSelectFeaturesInclusiveBounds(t *testing.T) {
	source := &Disc{Titles: []Title{
		titleWith(0, 899, "eng"),
		titleWith(1, 900, "eng"),
		titleWith(2, 1100, "eng"),
		titleWith(3, 1101, "eng"),
	}}
	got := SelectFeatures(source, []int{1000}, []string{"eng"})
	if len(got.Titles) != 2 || got.Titles[0].ID != 1 || got.Titles[1].ID != 2 {
		t.Fatalf("selected %+v, want titles 1 and 2", got.Titles)
	}
}

func TestSelectFeaturesRequiresAudio(t *testing.T) {
	source := &Disc{Titles: []Title{titleWith(0, 1000)}}
	if got := SelectFeatures(source, []int{1000}, []string{"eng"}); len(got.Titles) != 0 {
		t.Fatalf("title without audio selected: %+v", got.Titles)
	}
}

func TestSelectFeaturesMatchesAnyEpisodeRuntime(t *testing.T) {
	source := &Disc{Titles: []Title{
		titleWith(0, 1320, "en"),
		titleWith(1, 2640, "eng"),
		titleWith(2, 60, "eng"),
	}}
	got := SelectFeatures(source, RuntimesFromMinutes(22, 44, 0), []string{"English"})
	if len(got.Titles) != 2 {
		t.Fatalf("selected %d titles, want 2", len(got.Titles))
	}
}

func TestSelectFeaturesCloneIsIndependent(t *testing.T) {
	source := &Disc{Titles: []Title{titleWith(0, 1000, "eng")}}
	got := SelectFeatures(source, []int{1000}, []string{"eng"})
	got.Titles[0].Audio[0].LangCode = "fra"
	if source.Titles[0].Audio[0].LangCode != "eng" {
		t.Fatal("selected disc shares audio slice with source")
	}
	if title, ok := got.TitleByID(0); !ok || title.ID != 0 {
		t.Fatalf("TitleByID(0) = %+v, %v", title, ok)
	}
}
