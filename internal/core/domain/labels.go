package domain

const (
	LabelMainTag      = "whalesbook.main_tag"
	LabelGitTag       = "whalesbook.git_tag"
	LabelBuildContext = "whalesbook.build_context"
)

// LabelRecord is the decoded form of the whalesbook labels carried by images
// and containers.
type LabelRecord struct {
	MainTag      MainTag `json:"main_tag"`
	GitTag       string  `json:"git_tag,omitempty"`
	BuildContext string  `json:"build_context,omitempty"`
}

// DecodeLabels extracts the whalesbook record from a label map. ok is false
// when the main tag label is absent.
func DecodeLabels(labels map[string]string) (rec LabelRecord, ok bool, err error) {
	raw, found := labels[LabelMainTag]
	if !found {
		return LabelRecord{}, false, nil
	}
	tag, err := ParseMainTag(raw)
	if err != nil {
		return LabelRecord{}, false, err
	}
	return LabelRecord{
		MainTag:      tag,
		GitTag:       labels[LabelGitTag],
		BuildContext: labels[LabelBuildContext],
	}, true, nil
}

// Encode renders the record as labels, skipping empty values.
func (r LabelRecord) Encode() map[string]string {
	labels := map[string]string{LabelMainTag: r.MainTag.String()}
	if r.GitTag != "" {
		labels[LabelGitTag] = r.GitTag
	}
	if r.BuildContext != "" {
		labels[LabelBuildContext] = r.BuildContext
	}
	return labels
}

// MainTagFilter is the docker label filter selecting one main tag.
func MainTagFilter(tag MainTag) string {
	return LabelMainTag + "=" + tag.String()
}
