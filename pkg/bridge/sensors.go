package bridge

import (
	"strings"

	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
)

const friendlyPrefix = "ESM"

// Existing dashboards reference these sensor suffixes.
var legacySensorSuffix = map[string]string{
	"consumption_prices":  "consumption_cost",
	"subscription_prices": "subscription_cost",
	"transport_prices":    "transport_cost",
	"energy_taxes":        "energy_taxes_cost",
}

var legacyFriendlyName = map[string]string{
	"consumption_prices":  friendlyPrefix + " Consumption Cost",
	"subscription_prices": friendlyPrefix + " Subscription Cost",
	"transport_prices":    friendlyPrefix + " Transport Cost",
	"energy_taxes":        friendlyPrefix + " Energy Taxes Cost",
}

func energySensor(device string) string    { return "sensor." + device + "_energy" }
func totalCostSensor(device string) string { return "sensor." + device + "_total_cost" }

// Gas only.
func volumeSensor(device string) string { return "sensor." + device + "_volume" }

// Published before per-component costs existed.
func legacyTotalCostSensor(device string) string { return "sensor." + device + "_cost" }

func componentSensor(device, component string) string {
	suffix, ok := legacySensorSuffix[component]
	if !ok {
		suffix = component + "_cost"
	}
	return "sensor." + device + "_" + suffix
}

// componentFriendlyName turns green_energy_fee into "ESM Green Energy Fee Cost".
func componentFriendlyName(component string) string {
	if name, ok := legacyFriendlyName[component]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(component, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return friendlyPrefix + " " + strings.Join(append(words, "Cost"), " ")
}

// currencyCode maps the engine's price unit to the code Home Assistant expects.
func currencyCode(u units.PriceUnit) (string, error) {
	code, err := u.ISO4217()
	if err != nil {
		return "", errors.Wrap(err, "only € costs can be published")
	}
	return code, nil
}
