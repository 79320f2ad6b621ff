package stage

import (
	"context"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
)

type cohortContext struct {
	Goal        string `json:"goal"`
	Wedge       string `json:"wedge"`
	WedgeName   string `json:"wedge_name"`
	CohortSize  int    `json:"cohort_size"`
	DropoffRate string `json:"dropoff_rate"`
	TotalUsers  int    `json:"total_users"`
	UrgencyHint string `json:"urgency_hint"`
}

// Cohort asks the model for the cohort narrative. Size and drop-off rate
// always come from stats; urgency comes from the upstream hint when one is
// present and from the model otherwise.
func Cohort(ctx context.Context, client llm.Client, p Profile, goal string, stats artifact.CohortStats) (artifact.CohortInsight, error) {
	in := cohortContext{
		Goal:        goal,
		Wedge:       stats.WedgeKey,
		WedgeName:   stats.CohortName,
		CohortSize:  stats.CohortSize,
		DropoffRate: stats.DropoffRate,
		TotalUsers:  stats.TotalUsers,
		UrgencyHint: stats.UrgencyHint,
	}
	var data raw
	if err := call(ctx, client, NameCohort, p, cohortSystem, in, &data); err != nil {
		return artifact.CohortInsight{}, err
	}

	insight := normalizeCohort(data, stats)
	if err := insight.Validate(); err != nil {
		return artifact.CohortInsight{}, fail(NameCohort, KindValidation, err)
	}
	return insight, nil
}

func normalizeCohort(data raw, stats artifact.CohortStats) artifact.CohortInsight {
	urgency := stats.UrgencyHint
	if urgency == "" {
		urgency = strOr(data, "urgency", "")
	}
	return artifact.CohortInsight{
		Name:        strOr(data, "name", ""),
		Story:       strOr(data, "story", ""),
		Size:        stats.CohortSize,
		DropoffRate: stats.DropoffRate,
		Urgency:     urgency,
	}
}
