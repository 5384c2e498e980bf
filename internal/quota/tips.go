package quota

var energySavingTips = []string{
	"Turn off lights and appliances when not in use.",
	"Use energy-efficient LED bulbs.",
	"Set thermostat to an energy-saving temperature.",
}

func Tips() []string {
	return append([]string(nil), energySavingTips...)
}
