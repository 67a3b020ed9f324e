//go:build !opencv

package labeling

func newOpenCV(int) (SliceLabeler, error) {
	return nil, ErrBackendUnavailable
}
