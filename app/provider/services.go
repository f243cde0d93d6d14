package provider

// Service categories for value-added services.
const (
	CategoryAirtime     = "airtime"
	CategoryData        = "data"
	CategoryElectricity = "electricity"
	CategoryCableTV     = "cable_tv"
	CategoryInternet    = "internet"
	CategoryExams       = "exams"
)

// vtuServices is the fixed service-ID table for the VAS provider. These are
// wire identifiers, not configuration.
var vtuServices = map[string]string{
	// Airtime
	"mtn":      CategoryAirtime,
	"glo":      CategoryAirtime,
	"airtel":   CategoryAirtime,
	"etisalat": CategoryAirtime,

	// Data
	"mtn-data":      CategoryData,
	"glo-data":      CategoryData,
	"airtel-data":   CategoryData,
	"etisalat-data": CategoryData,

	// Electricity discos
	"ikeja-electric": CategoryElectricity,
	"eko-electric":   CategoryElectricity,
	"abuja-electric": CategoryElectricity,
	"kano-electric":  CategoryElectricity,
	"ph-electric":    CategoryElectricity,
	"jos-electric":   CategoryElectricity,
	"enugu-electric": CategoryElectricity,

	// Cable TV
	"dstv":      CategoryCableTV,
	"gotv":      CategoryCableTV,
	"startimes": CategoryCableTV,

	// Internet
	"smile":      CategoryInternet,
	"spectranet": CategoryInternet,

	// Exam bodies
	"waec": CategoryExams,
	"neco": CategoryExams,
	"jamb": CategoryExams,
}

// ServiceCategory resolves a service ID to its category. The second return
// is false for unknown services.
func ServiceCategory(serviceID string) (string, bool) {
	category, ok := vtuServices[serviceID]
	return category, ok
}
