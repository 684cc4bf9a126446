package shipping

import (
	"sort"
	"strconv"
	"strings"
)

// wilayaNames maps the official two-digit wilaya codes to their names
var wilayaNames = map[string]string{
	"01": "Adrar", "02": "Chlef", "03": "Laghouat", "04": "Oum El Bouaghi",
	"05": "Batna", "06": "Béjaïa", "07": "Biskra", "08": "Béchar",
	"09": "Blida", "10": "Bouira", "11": "Tamanrasset", "12": "Tébessa",
	"13": "Tlemcen", "14": "Tiaret", "15": "Tizi Ouzou", "16": "Alger",
	"17": "Djelfa", "18": "Jijel", "19": "Sétif", "20": "Saïda",
	"21": "Skikda", "22": "Sidi Bel Abbès", "23": "Annaba", "24": "Guelma",
	"25": "Constantine", "26": "Médéa", "27": "Mostaganem", "28": "M'Sila",
	"29": "Mascara", "30": "Ouargla", "31": "Oran", "32": "El Bayadh",
	"33": "Illizi", "34": "Bordj Bou Arréridj", "35": "Boumerdès", "36": "El Tarf",
	"37": "Tindouf", "38": "Tissemsilt", "39": "El Oued", "40": "Khenchela",
	"41": "Souk Ahras", "42": "Tipaza", "43": "Mila", "44": "Aïn Defla",
	"45": "Naâma", "46": "Aïn Témouchent", "47": "Ghardaïa", "48": "Relizane",
	"49": "Timimoun", "50": "Bordj Badji Mokhtar", "51": "Ouled Djellal", "52": "Béni Abbès",
	"53": "In Salah", "54": "In Guezzam", "55": "Touggourt", "56": "Djanet",
	"57": "El M'Ghair", "58": "El Meniaa",
}

// NormalizeCode turns "1", "01" or " 16 " into the two-digit code.
// ok is false for anything outside 01..58.
func NormalizeCode(code string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || n < 1 || n > len(wilayaNames) {
		return "", false
	}
	normalized := strconv.Itoa(n)
	if n < 10 {
		normalized = "0" + normalized
	}
	return normalized, true
}

// WilayaName returns the name of a wilaya, or "" for an unknown code
func WilayaName(code string) string {
	normalized, ok := NormalizeCode(code)
	if !ok {
		return ""
	}
	return wilayaNames[normalized]
}

// Wilaya is a code/name pair
type Wilaya struct {
	Code string
	Name string
}

// Wilayas returns every wilaya ordered by code
func Wilayas() []Wilaya {
	list := make([]Wilaya, 0, len(wilayaNames))
	for code, name := range wilayaNames {
		list = append(list, Wilaya{Code: code, Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}
