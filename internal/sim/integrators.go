package sim

import "fmt"

type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (e *Euler) Step(dyn Dynamics, x State, u Control, t, dt float64) State {
	return x.add(dyn.Derive(x, u, t), dt)
}

type RK4 struct{}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) Step(dyn Dynamics, x State, u Control, t, dt float64) State {
	k1 := dyn.Derive(x, u, t)
	k2 := dyn.Derive(x.add(k1, dt/2), u, t+dt/2)
	k3 := dyn.Derive(x.add(k2, dt/2), u, t+dt/2)
	k4 := dyn.Derive(x.add(k3, dt), u, t+dt)

	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dt/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

// GetIntegrator resolves an integrator by name.
func GetIntegrator(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}
