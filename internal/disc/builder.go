package disc

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ripline/internal/logging"
	"ripline/internal/services"
)

const (
	prefixDisc   = "CINFO:"
	prefixTitle  = "TINFO:"
	prefixStream = "SINFO:"

	codeStreamType = 1
)

type streamKind int

const (
	streamVideo streamKind = iota
	streamAudio
	streamSubtitle
)

type fieldSetter[T any] func(*T, string) error

func str[T any](field func(*T) *string) fieldSetter[T] {
	return func(target *T, value string) error {
		*field(target) = value
		return nil
	}
}

func num[T any](field func(*T) *int) fieldSetter[T] {
	return func(target *T, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*field(target) = n
		return nil
	}
}

var discFields = map[int]fieldSetter[Disc]{
	1:  str(func(d *Disc) *string { return &d.Type }),
	2:  str(func(d *Disc) *string { return &d.Name }),
	28: str(func(d *Disc) *string { return &d.MetadataLanguageCode }),
	29: str(func(d *Disc) *string { return &d.MetadataLanguageName }),
	30: str(func(d *Disc) *string { return &d.TreeInfo }),
	31: str(func(d *Disc) *string { return &d.PanelTitle }),
	32: str(func(d *Disc) *string { return &d.VolumeName }),
	33: num(func(d *Disc) *int { return &d.OrderWeight }),
}

var titleFields = map[int]fieldSetter[Title]{
	2: str(func(t *Title) *string { return &t.Name }),
	8: num(func(t *Title) *int { return &t.ChapterCount }),
	9: func(t *Title, value string) error {
		seconds, err := ParseDuration(value)
		if err != nil {
			seconds = 0
		}
		t.Duration = seconds
		return nil
	},
	10: str(func(t *Title) *string { return &t.DiskSize }),
	11: func(t *Title, value string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		t.DiskSizeBytes = n
		return nil
	},
	16: str(func(t *Title) *string { return &t.SourceFileName }),
	25: num(func(t *Title) *int { return &t.SegmentsCount }),
	26: str(func(t *Title) *string { return &t.SegmentsMap }),
	27: str(func(t *Title) *string { return &t.OutputFileName }),
	28: str(func(t *Title) *string { return &t.MetadataLanguageCode }),
	29: str(func(t *Title) *string { return &t.MetadataLanguageName }),
	30: str(func(t *Title) *string { return &t.TreeInfo }),
	31: str(func(t *Title) *string { return &t.PanelTitle }),
	33: num(func(t *Title) *int { return &t.OrderWeight }),
}

var videoFields = map[int]fieldSetter[VideoStream]{
	1:  str(func(s *VideoStream) *string { return &s.StreamType }),
	5:  str(func(s *VideoStream) *string { return &s.CodecID }),
	6:  str(func(s *VideoStream) *string { return &s.CodecShort }),
	7:  str(func(s *VideoStream) *string { return &s.CodecLong }),
	19: str(func(s *VideoStream) *string { return &s.Size }),
	20: str(func(s *VideoStream) *string { return &s.AspectRatio }),
	21: str(func(s *VideoStream) *string { return &s.FrameRate }),
	22: str(func(s *VideoStream) *string { return &s.Flags }),
	28: str(func(s *VideoStream) *string { return &s.MetadataLanguageCode }),
	29: str(func(s *VideoStream) *string { return &s.MetadataLanguageName }),
	30: str(func(s *VideoStream) *string { return &s.TreeInfo }),
	31: str(func(s *VideoStream) *string { return &s.PanelTitle }),
	33: num(func(s *VideoStream) *int { return &s.OrderWeight }),
	38: str(func(s *VideoStream) *string { return &s.MKVFlags }),
	42: str(func(s *VideoStream) *string { return &s.OutputConversionType }),
}

var audioFields = map[int]fieldSetter[AudioStream]{
	1:  str(func(s *AudioStream) *string { return &s.StreamType }),
	2:  str(func(s *AudioStream) *string { return &s.Name }),
	3:  str(func(s *AudioStream) *string { return &s.LangCode }),
	4:  str(func(s *AudioStream) *string { return &s.LangName }),
	5:  str(func(s *AudioStream) *string { return &s.CodecID }),
	6:  str(func(s *AudioStream) *string { return &s.CodecShort }),
	7:  str(func(s *AudioStream) *string { return &s.CodecLong }),
	13: str(func(s *AudioStream) *string { return &s.Bitrate }),
	14: num(func(s *AudioStream) *int { return &s.ChannelCount }),
	17: num(func(s *AudioStream) *int { return &s.SampleRate }),
	18: num(func(s *AudioStream) *int { return &s.SampleSize }),
	22: str(func(s *AudioStream) *string { return &s.Flags }),
	28: str(func(s *AudioStream) *string { return &s.MetadataLanguageCode }),
	29: str(func(s *AudioStream) *string { return &s.MetadataLanguageName }),
	30: str(func(s *AudioStream) *string { return &s.TreeInfo }),
	31: str(func(s *AudioStream) *string { return &s.PanelTitle }),
	33: num(func(s *AudioStream) *int { return &s.OrderWeight }),
	38: str(func(s *AudioStream) *string { return &s.MKVFlags }),
	39: str(func(s *AudioStream) *string { return &s.MKVFlagsText }),
	40: str(func(s *AudioStream) *string { return &s.ChannelLayout }),
	42: str(func(s *AudioStream) *string { return &s.OutputConversionType }),
}

var subtitleFields = map[int]fieldSetter[SubtitleStream]{
	1:  str(func(s *SubtitleStream) *string { return &s.StreamType }),
	3:  str(func(s *SubtitleStream) *string { return &s.LangCode }),
	4:  str(func(s *SubtitleStream) *string { return &s.LangName }),
	5:  str(func(s *SubtitleStream) *string { return &s.CodecID }),
	6:  str(func(s *SubtitleStream) *string { return &s.CodecShort }),
	7:  str(func(s *SubtitleStream) *string { return &s.CodecLong }),
	22: str(func(s *SubtitleStream) *string { return &s.Flags }),
	28: str(func(s *SubtitleStream) *string { return &s.MetadataLanguageCode }),
	29: str(func(s *SubtitleStream) *string { return &s.MetadataLanguageName }),
	30: str(func(s *SubtitleStream) *string { return &s.TreeInfo }),
	31: str(func(s *SubtitleStream) *string { return &s.PanelTitle }),
	33: num(func(s *SubtitleStream) *int { return &s.OrderWeight }),
	38: str(func(s *SubtitleStream) *string { return &s.MKVFlags }),
	39: str(func(s *SubtitleStream) *string { return &s.MKVFlagsText }),
	42: str(func(s *SubtitleStream) *string { return &s.OutputConversionType }),
}

// Builder folds robot-mode records into a Disc one line at a time.
// The zero value is not usable; call NewBuilder.
type Builder struct {
	logger   *slog.Logger
	disc     Disc
	cursor   streamKind
	audioIdx int
	subIdx   int
}

// NewBuilder returns an empty Builder. A nil logger discards unhandled-code logs.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{logger: logger, audioIdx: -1, subIdx: -1}
}

// BuildDisc folds every line and returns the resulting Disc.
func BuildDisc(lines []string, logger *slog.Logger) (*Disc, error) {
	b := NewBuilder(logger)
	for _, line := range lines {
		if err := b.Add(line); err != nil {
			return nil, err
		}
	}
	return b.Disc(), nil
}

// Disc returns a copy of the disc built so far.
func (b *Builder) Disc() *Disc {
	return b.disc.Clone()
}

// Add applies one record. Lines that are not CINFO, TINFO, or SINFO are
// ignored. Structural parse failures return an error wrapping
// services.ErrMalformed; the disc built so far should be discarded.
func (b *Builder) Add(line string) error {
	line = strings.TrimRight(line, "\r\n")
	columns := ParseLine(line)
	head := columns[0]
	switch {
	case strings.HasPrefix(head, prefixDisc):
		return b.addDisc(head, columns)
	case strings.HasPrefix(head, prefixTitle):
		return b.addTitle(head, columns)
	case strings.HasPrefix(head, prefixStream):
		return b.addStream(head, columns)
	default:
		return nil
	}
}

func (b *Builder) addDisc(head string, columns []string) error {
	code, err := parseIndex(strings.TrimPrefix(head, prefixDisc))
	if err != nil {
		return malformed("disc code", head, err)
	}
	value, err := column(columns, 2, "disc value")
	if err != nil {
		return err
	}
	return apply(b, discFields, &b.disc, "disc", code, value)
}

func (b *Builder) addTitle(head string, columns []string) error {
	id, err := parseTitleID(strings.TrimPrefix(head, prefixTitle))
	if err != nil {
		return malformed("title id", head, err)
	}
	rawCode, err := column(columns, 1, "title code")
	if err != nil {
		return err
	}
	code, err := parseIndex(rawCode)
	if err != nil {
		return malformed("title code", rawCode, err)
	}
	value, err := column(columns, 3, "title value")
	if err != nil {
		return err
	}
	return apply(b, titleFields, b.title(id), "title", code, value)
}

func (b *Builder) addStream(head string, columns []string) error {
	titleID, err := parseTitleID(strings.TrimPrefix(head, prefixStream))
	if err != nil {
		return malformed("stream title id", head, err)
	}
	rawCode, err := column(columns, 2, "stream code")
	if err != nil {
		return err
	}
	code, err := parseIndex(rawCode)
	if err != nil {
		return malformed("stream code", rawCode, err)
	}
	value, err := column(columns, 4, "stream value")
	if err != nil {
		return err
	}

	if code == codeStreamType {
		switch value {
		case "Video":
			b.cursor = streamVideo
			b.audioIdx = -1
			b.subIdx = -1
		case "Audio":
			b.cursor = streamAudio
			b.audioIdx++
		case "Subtitles":
			b.cursor = streamSubtitle
			b.subIdx++
		default:
			b.logger.Debug("unhandled makemkv stream type", logging.String("value", value))
		}
	}

	title := b.title(titleID)
	switch b.cursor {
	case streamAudio:
		for len(title.Audio) <= b.audioIdx {
			title.Audio = append(title.Audio, AudioStream{})
		}
		return apply(b, audioFields, &title.Audio[b.audioIdx], "audio stream", code, value)
	case streamSubtitle:
		for len(title.Subtitles) <= b.subIdx {
			title.Subtitles = append(title.Subtitles, SubtitleStream{})
		}
		return apply(b, subtitleFields, &title.Subtitles[b.subIdx], "subtitle stream", code, value)
	default:
		return apply(b, videoFields, &title.Video, "video stream", code, value)
	}
}

// title grows the title list so that id exists, filling gaps with placeholders.
func (b *Builder) title(id int) *Title {
	for len(b.disc.Titles) <= id {
		b.disc.Titles = append(b.disc.Titles, Title{ID: len(b.disc.Titles)})
	}
	return &b.disc.Titles[id]
}

func apply[T any](b *Builder, fields map[int]fieldSetter[T], target *T, record string, code int, value string) error {
	set, ok := fields[code]
	if !ok {
		b.logger.Debug("unhandled makemkv field code",
			logging.String("record", record),
			logging.Int("code", code),
			logging.String("value", value),
		)
		return nil
	}
	if err := set(target, value); err != nil {
		return malformed(fmt.Sprintf("%s field %d", record, code), value, err)
	}
	return nil
}

func parseIndex(raw string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 31)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// MaxTitleID bounds title ids so one bad record cannot grow the title list
// without limit. MakeMKV numbers titles from zero and never gets close.
const MaxTitleID = 9999

func parseTitleID(raw string) (int, error) {
	id, err := parseIndex(raw)
	if err != nil {
		return 0, err
	}
	if id > MaxTitleID {
		return 0, fmt.Errorf("title id %d exceeds %d", id, MaxTitleID)
	}
	return id, nil
}

func column(columns []string, idx int, what string) (string, error) {
	if idx >= len(columns) {
		return "", services.Wrap(services.ErrMalformed, "makemkv", "parse", "missing "+what, nil)
	}
	return columns[idx], nil
}

func malformed(what, raw string, err error) error {
	return services.Wrap(services.ErrMalformed, "makemkv", "parse", fmt.Sprintf("invalid %s %q", what, raw), err)
}
