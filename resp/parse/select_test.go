package parse

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSelect_EpochByDate(t *testing.T) {
	rs := parseSample(t)
	f := Filter{
		Stations:  []string{"ANMO"},
		Channels:  []string{"BHZ"},
		Networks:  []string{"IU"},
		Locations: []string{"00"},
		Time:      time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := Select(rs, f)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0] != rs[0] {
		t.Fatalf("got %d epochs, want the 1990-2000 epoch", len(got))
	}

	f.Time = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err = Select(rs, f)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || got[0] != rs[1] {
		t.Errorf("end bound is exclusive: got %v", got)
	}

	f.Time = time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = Select(rs, f)
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
}

func TestSelect_Filters(t *testing.T) {
	rs := parseSample(t)
	tests := []struct {
		name string
		f    Filter
		want []int
	}{
		{"all", Filter{}, []int{0, 1, 2}},
		{"all epochs in file order", Filter{Channels: []string{"BHZ"}}, []int{0, 1}},
		{"wildcard", Filter{Channels: SplitList("?HZ")}, []int{0, 1, 2}},
		{"star", Filter{Stations: []string{"AN*"}, Channels: []string{"L*"}}, []int{2}},
		{"list", Filter{Channels: SplitList("LHZ, BHN")}, []int{2}},
		{"blank location dashes", Filter{Locations: []string{"--"}}, []int{2}},
		{"blank location question marks", Filter{Locations: []string{"??"}}, []int{0, 1, 2}},
		{"case insensitive", Filter{Networks: []string{"iu"}, Locations: []string{"00"}}, []int{0, 1}},
		{"open epoch", Filter{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(rs, tt.f)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			var idx []int
			for _, g := range got {
				idx = append(idx, slices.Index(rs, g))
			}
			if !slices.Equal(idx, tt.want) {
				t.Errorf("selected %v, want %v", idx, tt.want)
			}
		})
	}
}

func TestSelect_NotFoundMessage(t *testing.T) {
	_, err := Select(parseSample(t), Filter{Stations: []string{"COLA"}, Channels: []string{"BHZ", "BHN"}})
	if err == nil {
		t.Fatal("Select succeeded")
	}
	want := "parse: no channel epoch matches sta=COLA cha=BHZ,BHN"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"BHZ", []string{"BHZ"}},
		{"BHZ,BHN", []string{"BHZ", "BHN"}},
		{" BHZ , BH? ", []string{"BHZ", "BH?"}},
		{"BHZ BHE", []string{"BHZ", "BHE"}},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("SplitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"2024,061", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1995,100,12:30:15", time.Date(1995, 4, 10, 12, 30, 15, 0, time.UTC)},
		{"2024-03-01T06:00:00Z", time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil || !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"2024", "2024,400", "2024,x", "1,2,3,4"} {
		if _, err := ParseTime(bad); !errors.Is(err, ErrInvalidField) {
			t.Errorf("ParseTime(%q) err = %v", bad, err)
		}
	}
}

func TestFileGlob(t *testing.T) {
	tests := []struct {
		name    string
		f       Filter
		want    string
		wantErr bool
	}{
		{"all", Filter{}, "RESP.*.*.*.*", false},
		{"single codes", Filter{Networks: []string{"IU"}, Stations: []string{"ANMO"}, Locations: []string{"00"}, Channels: []string{"BH?"}}, "RESP.IU.ANMO.00.BH?", false},
		{"lists widen", Filter{Stations: []string{"ANMO", "COLA"}, Channels: []string{"BHZ"}}, "RESP.*.*.*.BHZ", false},
		{"blank location", Filter{Locations: []string{"--"}}, "RESP.*.*.*.*", false},
		{"path separator", Filter{Channels: []string{"/../../secret.txt"}}, "", true},
		{"parent directory", Filter{Stations: []string{".."}}, "", true},
		{"backslash", Filter{Networks: []string{`..\x`}}, "", true},
		{"character class", Filter{Channels: []string{"BH[ZN]"}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileGlob(tt.f)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCode) {
					t.Fatalf("err = %v, want ErrInvalidCode", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FileGlob = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}
