package billing

const (
	PlanFree     = "free"
	PlanStarter  = "starter"
	PlanBusiness = "business"
)

// Plan limits use 0 to mean unlimited.
type Plan struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	UserLimit         int    `json:"userLimit"`
	ContactLimit      int    `json:"contactLimit"`
	EmailLimitMonthly int    `json:"emailLimitMonthly"`
	PriceCents        int    `json:"priceCents"`
}

func DefaultPlans() []Plan {
	return []Plan{
		{Code: PlanFree, Name: "Free", UserLimit: 3, ContactLimit: 250, EmailLimitMonthly: 500, PriceCents: 0},
		{Code: PlanStarter, Name: "Starter", UserLimit: 10, ContactLimit: 5000, EmailLimitMonthly: 10000, PriceCents: 2900},
		{Code: PlanBusiness, Name: "Business", UserLimit: 50, ContactLimit: 0, EmailLimitMonthly: 100000, PriceCents: 9900},
	}
}

func ValidPlanCode(code string) bool {
	switch code {
	case PlanFree, PlanStarter, PlanBusiness:
		return true
	}
	return false
}
