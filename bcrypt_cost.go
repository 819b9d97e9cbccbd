//go:build !race

package festadmin

func passwordHashCost() int {
	return 14
}
