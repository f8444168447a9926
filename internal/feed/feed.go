// Package feed turns a sampled slice of lesson items into a display-ready feed.
package feed

import (
	"fmt"

	"github.com/pavelanni/kinderquiz/internal/model"
)

// Build organizes a lesson sample for subject. Categorized subjects are
// grouped by category in the order categories first appear in the sample,
// with items kept in sample order inside each group. Other subjects get the
// sample back unchanged as a flat list. poolSize is carried through for the
// "showing N of M" line.
func Build(subject model.Subject, sample []model.LessonItem, poolSize int) (model.LessonFeed, error) {
	traits, err := model.TraitsOf(subject)
	if err != nil {
		return model.LessonFeed{}, fmt.Errorf("build feed: %w", err)
	}

	f := model.LessonFeed{
		Subject:  subject,
		Shown:    len(sample),
		PoolSize: poolSize,
	}
	if !traits.Categorized {
		f.Items = append([]model.LessonItem{}, sample...)
		return f, nil
	}
	f.Groups = group(sample)
	return f, nil
}

func group(sample []model.LessonItem) []model.LessonGroup {
	groups := []model.LessonGroup{}
	index := make(map[string]int)
	for _, it := range sample {
		label := it.CategoryLabel()
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, model.LessonGroup{Category: label})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
