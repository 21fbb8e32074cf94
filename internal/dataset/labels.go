package dataset

// NumClasses is the number of Fashion-MNIST categories.
const NumClasses = 10

// Labels maps a class index to its Fashion-MNIST name.
var Labels = [NumClasses]string{
	"t-shirt", "trouser", "pullover", "dress", "coat",
	"sandal", "shirt", "sneaker", "bag", "ankle boot",
}

// TextLabel returns the name of class label, or "unknown".
func TextLabel(label int) string {
	if label < 0 || label >= NumClasses {
		return "unknown"
	}
	return Labels[label]
}

// TextLabels maps every label to its name.
func TextLabels(labels []int) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = TextLabel(l)
	}
	return out
}
