package disc

// Disc is the disc-level metadata plus every title MakeMKV reported.
// It is built once per probe and treated as immutable afterwards.
type Disc struct {
	Type                 string  `json:"disc_type"`
	Name                 string  `json:"name"`
	MetadataLanguageCode string  `json:"metadata_language_code"`
	MetadataLanguageName string  `json:"metadata_language_name"`
	TreeInfo             string  `json:"tree_info"`
	PanelTitle           string  `json:"panel_title"`
	VolumeName           string  `json:"volume_name"`
	OrderWeight          int     `json:"order_weight"`
	Titles               []Title `json:"titles"`
}

// Title is one playable title. ID always equals its index in Disc.Titles.
type Title struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	ChapterCount         int              `json:"chapter_count"`
	Duration             int              `json:"duration"`
	DiskSize             string           `json:"disk_size"`
	DiskSizeBytes        int64            `json:"disk_size_bytes"`
	SourceFileName       string           `json:"source_file_name"`
	SegmentsCount        int              `json:"segments_count"`
	SegmentsMap          string           `json:"segments_map"`
	OutputFileName       string           `json:"output_file_name"`
	MetadataLanguageCode string           `json:"metadata_language_code"`
	MetadataLanguageName string           `json:"metadata_language_name"`
	TreeInfo             string           `json:"tree_info"`
	PanelTitle           string           `json:"panel_title"`
	OrderWeight          int              `json:"order_weight"`
	Video                VideoStream      `json:"video_stream"`
	Audio                []AudioStream    `json:"audio_streams"`
	Subtitles            []SubtitleStream `json:"subtitle_streams"`
}

// VideoStream describes the title's video track.
type VideoStream struct {
	StreamType           string `json:"stream_type"`
	CodecID              string `json:"codec_id"`
	CodecShort           string `json:"codec_short"`
	CodecLong            string `json:"codec_long"`
	Size                 string `json:"video_size"`
	AspectRatio          string `json:"video_aspect_ratio"`
	FrameRate            string `json:"video_frame_rate"`
	Flags                string `json:"stream_flags"`
	MetadataLanguageCode string `json:"metadata_language_code"`
	MetadataLanguageName string `json:"metadata_language_name"`
	TreeInfo             string `json:"tree_info"`
	PanelTitle           string `json:"panel_title"`
	OrderWeight          int    `json:"order_weight"`
	MKVFlags             string `json:"mkv_flags"`
	OutputConversionType string `json:"output_conversion_type"`
}

// AudioStream describes one audio track.
type AudioStream struct {
	StreamType           string `json:"stream_type"`
	Name                 string `json:"name"`
	LangCode             string `json:"lang_code"`
	LangName             string `json:"lang_name"`
	CodecID              string `json:"codec_id"`
	CodecShort           string `json:"codec_short"`
	CodecLong            string `json:"codec_long"`
	Bitrate              string `json:"bitrate"`
	ChannelCount         int    `json:"audio_channels_count"`
	SampleRate           int    `json:"audio_sample_rate"`
	SampleSize           int    `json:"audio_sample_size"`
	Flags                string `json:"stream_flags"`
	MetadataLanguageCode string `json:"metadata_language_code"`
	MetadataLanguageName string `json:"metadata_language_name"`
	TreeInfo             string `json:"tree_info"`
	PanelTitle           string `json:"panel_title"`
	OrderWeight          int    `json:"order_weight"`
	MKVFlags             string `json:"mkv_flags"`
	MKVFlagsText         string `json:"mkv_flags_text"`
	ChannelLayout        string `json:"audio_channel_layout_name"`
	OutputConversionType string `json:"output_conversion_type"`
}

// SubtitleStream describes one subtitle track.
type SubtitleStream struct {
	StreamType           string `json:"stream_type"`
	LangCode             string `json:"lang_code"`
	LangName             string `json:"lang_name"`
	CodecID              string `json:"codec_id"`
	CodecShort           string `json:"codec_short"`
	CodecLong            string `json:"codec_long"`
	Flags                string `json:"stream_flags"`
	MetadataLanguageCode string `json:"metadata_language_code"`
	MetadataLanguageName string `json:"metadata_language_name"`
	TreeInfo             string `json:"tree_info"`
	PanelTitle           string `json:"panel_title"`
	OrderWeight          int    `json:"order_weight"`
	MKVFlags             string `json:"mkv_flags"`
	MKVFlagsText         string `json:"mkv_flags_text"`
	OutputConversionType string `json:"output_conversion_type"`
}

// Clone returns a deep copy of d.
func (d *Disc) Clone() *Disc {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Titles = make([]Title, len(d.Titles))
	for i := range d.Titles {
		clone.Titles[i] = d.Titles[i].Clone()
	}
	return &clone
}

// Clone returns a deep copy of t.
func (t Title) Clone() Title {
	t.Audio = append([]AudioStream(nil), t.Audio...)
	t.Subtitles = append([]SubtitleStream(nil), t.Subtitles...)
	return t
}

// TitleByID returns the title with the given id. Filtered discs keep the
// original ids, so this searches rather than indexes.
func (d *Disc) TitleByID(id int) (Title, bool) {
	if d == nil {
		return Title{}, false
	}
	for _, title := range d.Titles {
		if title.ID == id {
			return title, true
		}
	}
	return Title{}, false
}
