package rank

// referenceRanks is the coin ladder: 10원 up to the gold bar.
var referenceRanks = []Rank{
	{Label: "10원", Radius: 35, Color: "#C38067", MergeScore: 10},
	{Label: "50원", Radius: 42, Color: "#B87333", MergeScore: 50},
	{Label: "100원", Radius: 48, Color: "#D8D8D8", MergeScore: 100},
	{Label: "500원", Radius: 54, Color: "#E2E2E2", MergeScore: 500},
	{Label: "1,000원", Radius: 61, Color: "#4D76B6", MergeScore: 1000},
	{Label: "5,000원", Radius: 67, Color: "#E48D65", MergeScore: 5000},
	{Label: "10,000원", Radius: 74, Color: "#5E9D61", MergeScore: 10000},
	{Label: "50,000원", Radius: 80, Color: "#D4AF37", MergeScore: 50000},
	{Label: "골드바", Radius: 86, Color: "#B8860B", MergeScore: 100000},
}

// Reference returns the built-in nine-rank table.
func Reference() *Catalog {
	c, err := New(referenceRanks)
	if err != nil {
		panic("rank: reference table invalid: " + err.Error())
	}
	return c
}
