package image

import (
	"strconv"

	"img-thumbs/internal/domain"
)

// URLs maps a tree to {"original" | "<height>": {id, url}}. Images without a
// stored file are left out, so the result may be empty but is never nil.
func (u *ImageUsecase) URLs(tree *domain.ImageTree) map[string]domain.ImageURL {
	return AssembleURLs(tree, u.files.URL)
}

func AssembleURLs(tree *domain.ImageTree, fileURL func(path string) string) map[string]domain.ImageURL {
	urls := make(map[string]domain.ImageURL, len(tree.Children)+1)

	if tree.Root.HasFile() {
		urls[domain.URLKeyOriginal] = domain.ImageURL{
			ID:  tree.Root.ID,
			URL: fileURL(tree.Root.FilePath),
		}
	}

	for _, child := range tree.Children {
		if !child.HasFile() {
			continue
		}
		urls[strconv.Itoa(child.RuleHeight)] = domain.ImageURL{
			ID:  child.ID,
			URL: fileURL(child.FilePath),
		}
	}

	return urls
}
