package ais

var navStatusNames = [...]string{
	"Under way using engine",
	"At anchor",
	"Not under command",
	"Restricted manoeuverability",
	"Constrained by her draught",
	"Moored",
	"Aground",
	"Engaged in fishing",
	"Under way sailing",
	"Reserved for HSC",
	"Reserved for WIG",
	"Power-driven vessel towing astern",
	"Power-driven vessel pushing ahead or towing alongside",
	"Reserved",
	"AIS-SART is active",
	"Not defined",
}

var maneuverNames = [...]string{
	"Not available",
	"No special maneuver",
	"Special maneuver",
}

var epfdNames = [...]string{
	"Undefined",
	"GPS",
	"GLONASS",
	"Combined GPS/GLONASS",
	"Loran-C",
	"Chayka",
	"Integrated navigation system",
	"Surveyed",
	"Galileo",
}

// epfdName never fails; codes outside the table are "Unknown".
func epfdName(code int) string {
	if code < 0 || code >= len(epfdNames) {
		return "Unknown"
	}
	return epfdNames[code]
}

func lookup(table []string, i int) string {
	if i < 0 || i >= len(table) {
		return ""
	}
	return table[i]
}
