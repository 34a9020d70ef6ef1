package domain

// ClusterAssignment maps every input coordinate to a cluster and each cluster
// to its representative input index.
//
// Labels[i] is the cluster of input i. Representatives[l] is the input index
// chosen for cluster l, so Labels[Representatives[l]] == l. Labels are numbered
// in first-occurrence order.
type ClusterAssignment struct {
	Labels          []int
	Representatives []int
}

// IdentityAssignment puts every one of n coordinates in its own cluster.
func IdentityAssignment(n int) ClusterAssignment {
	a := ClusterAssignment{
		Labels:          make([]int, n),
		Representatives: make([]int, n),
	}
	for i := 0; i < n; i++ {
		a.Labels[i] = i
		a.Representatives[i] = i
	}
	return a
}

// Representative returns the representative input index for input i.
func (a ClusterAssignment) Representative(i int) int {
	return a.Representatives[a.Labels[i]]
}

// Clusters returns the number of distinct clusters.
func (a ClusterAssignment) Clusters() int {
	return len(a.Representatives)
}
