package ssr

var dfNames = map[int]string{
	0:  "Short Air-to-air ACAS",
	4:  "Roll call reply (alt)",
	5:  "Roll call reply (ident)",
	11: "All call reply",
	16: "Long Air-to-air ACAS",
	17: "Extended squitter",
	18: "TIS-B",
	19: "Extended squitter (Military)",
	20: "Comm B alt",
	21: "Comm B ident",
	22: "Military",
	24: "Comm D ELM",
}

func dfName(df int) string {
	if name, ok := dfNames[df]; ok {
		return name
	}
	return "Unknown"
}

var fsNames = [...]string{
	"Nrml, Air",
	"Nrml, Gnd",
	"Alert, Air",
	"Alert, Gnd",
	"Alert + SPI",
	"SPI",
	"Reserved",
	"Unknown",
}

var drNames = [...]string{
	"No downlink req",
	"Comm-B msg req",
	"Reserved ACAS",
	"Reserved ACAS",
	"Comm-B bcast msg 1",
	"Comm-B bcast msg 2",
	"Reserved ACAS",
	"Reserved ACAS",
	"Not assigned", "Not assigned", "Not assigned", "Not assigned",
	"Not assigned", "Not assigned", "Not assigned", "Not assigned",
	"ELM", "ELM", "ELM", "ELM", "ELM", "ELM", "ELM", "ELM",
	"ELM", "ELM", "ELM", "ELM", "ELM", "ELM", "ELM", "ELM",
}

var idsNames = [...]string{"No data", "COMM-B", "COMM-C", "COMM-D"}

var ctrlNames = [...]string{
	"ADS-B ES/NT w/ ICAO AA",
	"ADS-B ES/NT w/ other addr",
	"Fine fmt TIS-B",
	"Coarse fmt TIS-B",
	"TIS-B mgmt msg",
	"TIS-B relay of ADS-B msg w/other addr",
	"ADS-B rebroadcast using DF17 msg fmt",
	"Reserved",
}

var ssNames = [...]string{"No alert", "Permanent alert", "Code change", "SPI"}

var esNames = [...]string{
	"No emergency",
	"General emergency (sqwk 7700)",
	"Lifeguard/Medical",
	"Minimum Fuel",
	"No comms (sqwk 7600)",
	"Unlawful interference (sqwk 7500)",
	"Downed aircraft",
	"Reserved",
}

// EmergencyStateName describes the emergency state of an aircraft status
// message.
func EmergencyStateName(es int) string {
	return lookup(esNames[:], es)
}

// categoryNames describes the emitter categories carried by
// identification messages, keyed by set letter and number.
var categoryNames = map[string]string{
	"A0": "No category info",
	"A1": "Light",
	"A2": "Small",
	"A3": "Large",
	"A4": "High vortex large",
	"A5": "Heavy",
	"A6": "High performance",
	"A7": "Rotorcraft",
	"B0": "No category info",
	"B1": "Glider/sailplane",
	"B2": "Lighter-than-air",
	"B3": "Parachutist/skydiver",
	"B4": "Ultralight/hang-glider/paraglider",
	"B5": "Reserved",
	"B6": "Unmanned aerial vehicle",
	"B7": "Space/trans-atmospheric vehicle",
	"C0": "No category info",
	"C1": "Surface emergency vehicle",
	"C2": "Surface service vehicle",
	"C3": "Point obstacle",
	"C4": "Cluster obstacle",
	"C5": "Line obstacle",
	"C6": "Reserved",
	"C7": "Reserved",
	"D0": "No category info",
}

// fmtName names the extended squitter format type code.
func fmtName(f int) string {
	switch {
	case f == 0:
		return "No position info"
	case f >= 1 && f <= 4:
		return "ID and category"
	case f >= 5 && f <= 8:
		return "Surface pos"
	case f >= 9 && f <= 18, f >= 20 && f <= 22:
		return "Airborne pos"
	case f == 19:
		return "Airborne velo"
	case f == 23:
		return "Testing"
	case f == 24:
		return "System status"
	case f >= 25 && f <= 27:
		return "Reserved"
	case f == 28:
		return "ES Aircraft Status"
	case f == 29:
		return "Next trajectory change point / Target state and status"
	case f == 30:
		return "Aircraft operational coordination"
	case f == 31:
		return "Aircraft operational status"
	}
	return "Invalid"
}

// lookup returns table[i] or "" when i is out of range.
func lookup(table []string, i int) string {
	if i < 0 || i >= len(table) {
		return ""
	}
	return table[i]
}
