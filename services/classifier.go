package services

import (
	"cardprice/config"
	"cardprice/models"
)

// Classifier buckets correlated listings. Rules run in precedence order and
// the first one that fires decides:
//
//  1. bulk marker in the title            -> excluded (bulk listing)
//  2. tracked authority, grade 10 only    -> grade10
//  3. tracked authority, grade 9 only     -> grade9
//  4. any other authority or graded hint  -> excluded (ambiguous grade)
//  5. otherwise                           -> raw
//
// Authority names are compared as whole tokens so a word that merely
// contains an abbreviation is not grading evidence.
type Classifier struct {
	bulk   *phraseTable
	grades *gradeScanner
}

func NewClassifier(v *config.Vocabulary) *Classifier {
	return &Classifier{
		bulk:   newWordTable(v.BulkMarkers),
		grades: newGradeScanner(v.Grading),
	}
}

// Classify is deterministic: the same listing always lands in the same
// bucket with the same reason.
func (c *Classifier) Classify(l models.CorrelatedListing) models.ClassifiedListing {
	bucket, reason := c.bucket(l.NormalizedTitle, l.ConditionText)
	return models.ClassifiedListing{
		CorrelatedListing: l,
		Bucket:            bucket,
		ExclusionReason:   reason,
	}
}

func (c *Classifier) bucket(title, condition string) (models.GradeBucket, models.Reason) {
	titleToks := tokenize(title)
	if c.bulk.contains(titleToks) {
		return models.BucketExcluded, models.ReasonBulkListing
	}

	condToks := tokenize(NormalizeTitle(condition))
	titleScan := c.grades.scan(titleToks)
	condScan := c.grades.scan(condToks)

	competing := titleScan.competing() || condScan.competing()
	grades := trackedGrades(titleScan, condScan)

	if !competing && len(grades) == 1 {
		switch {
		case grades["10"]:
			return models.BucketGrade10, models.ReasonNone
		case grades["9"]:
			return models.BucketGrade9, models.ReasonNone
		}
	}

	if titleScan.any() || condScan.any() || mentionsGraded(condToks) {
		return models.BucketExcluded, models.ReasonUntrackedAuthority
	}
	return models.BucketRaw, models.ReasonNone
}

// mentionsGraded catches marketplace condition strings such as "Graded"
// that carry no authority name.
func mentionsGraded(toks []token) bool {
	for _, t := range toks {
		if t.lower == "graded" {
			return true
		}
	}
	return false
}
