// Package dwi assembles the diffusion-weighted imaging stage set: eddy-current
// correction, brain extraction, tensor fitting, and the optional bedpostx
// fiber orientation sampling. Tool wiring lives here; the engine in package
// pipeline stays ignorant of FSL.
package dwi
